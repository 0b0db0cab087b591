package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rowanmckenna/marketstead-backend/api/controllers"
	"github.com/rowanmckenna/marketstead-backend/api/middleware"
	authsvc "github.com/rowanmckenna/marketstead-backend/internal/auth"
	"github.com/rowanmckenna/marketstead-backend/internal/cart"
	"github.com/rowanmckenna/marketstead-backend/internal/catalog"
	"github.com/rowanmckenna/marketstead-backend/internal/orders"
	"github.com/rowanmckenna/marketstead-backend/internal/reviews"
	"github.com/rowanmckenna/marketstead-backend/internal/users"
	"github.com/rowanmckenna/marketstead-backend/internal/wishlist"
	"github.com/rowanmckenna/marketstead-backend/pkg/config"
	"github.com/rowanmckenna/marketstead-backend/pkg/db"
	"github.com/rowanmckenna/marketstead-backend/pkg/enums"
	"github.com/rowanmckenna/marketstead-backend/pkg/logger"
	"github.com/rowanmckenna/marketstead-backend/pkg/metrics"
	"github.com/rowanmckenna/marketstead-backend/pkg/redis"
)

// Deps carries everything the router needs.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           db.Pinger
	Redis        *redis.Client
	HTTPMetrics  *metrics.HTTPMetrics
	MetricsHTTP  http.Handler
	AuthService  authsvc.Service
	UserService  users.Service
	CatalogSvc   catalog.Service
	CartService  cart.Service
	OrderService orders.Service
	ReviewSvc    reviews.Service
	WishlistSvc  wishlist.Service
}

// NewRouter wires middleware, public routes and the three authenticated
// route groups.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.RequestLogging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(nil),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(deps.DB, deps.Redis, logg))
	})

	if deps.MetricsHTTP != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHTTP)
	} else {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	loginPolicy := middleware.LoginRateLimitPolicy(cfg.AuthRateLimit)
	registerPolicy := middleware.RegisterRateLimitPolicy(cfg.AuthRateLimit)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(deps.Redis, loginPolicy, logg)).
			Post("/login", controllers.Login(deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(deps.Redis, registerPolicy, logg)).
			Post("/register", controllers.Register(deps.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public catalog surface.
		r.Get("/products", controllers.ListProducts(deps.CatalogSvc, logg))
		r.Get("/products/{slug}", controllers.GetProductBySlug(deps.CatalogSvc, logg))
		r.Get("/products/{id}/reviews", controllers.ListProductReviews(deps.ReviewSvc, logg))
		r.Get("/categories", controllers.ListCategories(deps.CatalogSvc, logg))

		// Authenticated customer surface.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(cfg.JWT, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(deps.CartService, logg))
				r.Delete("/", controllers.ClearCart(deps.CartService, logg))
				r.Post("/items", controllers.AddCartItem(deps.CartService, logg))
				r.Patch("/items/{productId}", controllers.UpdateCartItem(deps.CartService, logg))
				r.Delete("/items/{productId}", controllers.RemoveCartItem(deps.CartService, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.With(middleware.Idempotency(deps.Redis, logg)).
					Post("/", controllers.PlaceOrder(deps.OrderService, logg))
				r.Get("/", controllers.ListOrders(deps.OrderService, logg))
				r.Get("/{id}", controllers.GetOrder(deps.OrderService, logg))
				r.With(middleware.RequireRole(logg, enums.UserRoleVendor)).
					Post("/{id}/status", controllers.UpdateOrderStatus(deps.OrderService, logg))
			})

			r.Post("/reviews", controllers.CreateReview(deps.ReviewSvc, logg))

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.ListWishlist(deps.WishlistSvc, logg))
				r.Post("/{productId}", controllers.AddWishlistItem(deps.WishlistSvc, logg))
				r.Delete("/{productId}", controllers.RemoveWishlistItem(deps.WishlistSvc, logg))
			})

			// Vendor surface.
			r.Route("/vendor", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleVendor))
				r.Post("/products", controllers.CreateProduct(deps.CatalogSvc, logg))
				r.Patch("/products/{id}", controllers.UpdateProduct(deps.CatalogSvc, logg))
				r.Delete("/products/{id}", controllers.DeleteProduct(deps.CatalogSvc, logg))
				r.Get("/orders", controllers.ListVendorOrders(deps.OrderService, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(
			middleware.RequireAuth(cfg.JWT, logg),
			middleware.RequireRole(logg, enums.UserRoleAdmin),
		)

		r.Post("/categories", controllers.CreateCategory(deps.CatalogSvc, logg))
		r.Patch("/categories/{id}", controllers.UpdateCategory(deps.CatalogSvc, logg))
		r.Delete("/categories/{id}", controllers.DeleteCategory(deps.CatalogSvc, logg))

		r.Get("/users", controllers.ListUsers(deps.UserService, logg))
		r.Post("/users/{id}/deactivate", controllers.DeactivateUser(deps.UserService, logg))
	})

	return r
}
