package router

import (
	"swapkit/internal/rest"

	"github.com/labstack/echo/v4"
)

func SetupProductRoutes(api *echo.Group, handler *rest.ProductHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	products := api.Group("/products")

	products.GET("", handler.GetAllProducts, authRequired)
	products.GET("/:id", handler.GetProductByID, authRequired)
	products.POST("", handler.CreateProduct, authRequired, adminOnly)
	products.PUT("/:id", handler.UpdateProduct, authRequired, adminOnly)
	products.DELETE("/:id", handler.DeleteProduct, authRequired, adminOnly)
}

func SetupSwapRoutes(api *echo.Group, handler *rest.SwapHandler, authRequired echo.MiddlewareFunc) {
	swaps := api.Group("/swaps", authRequired)

	swaps.POST("/suggest", handler.SuggestSwaps)
	swaps.POST("/feedback", handler.Feedback)
	swaps.GET("/decisions", handler.RecentDecisions)
	swaps.GET("/stats", handler.Stats)
}

func SetupSwapAdminRoutes(api *echo.Group, admin *rest.SwapAdminHandler, rules *rest.SwapRuleHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	grp := api.Group("/admin", authRequired, adminOnly)

	grp.GET("/swaps/weights", admin.GetWeights)
	grp.POST("/swaps/reconcile", admin.Reconcile)

	grp.GET("/swap-rules", rules.GetAllRules)
	grp.GET("/swap-rules/:id", rules.GetRuleByID)
	grp.POST("/swap-rules", rules.CreateRule)
	grp.PUT("/swap-rules/:id", rules.UpdateRule)
	grp.DELETE("/swap-rules/:id", rules.DeleteRule)
}
