package http

import (
	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/http/controller"
	"github.com/iyhunko/product-catalog/internal/http/middleware"
)

// InitRouter registers middleware and the catalog routes on server.
func InitRouter(server *gin.Engine, con *controller.Controller, productCtr *controller.ProductController) (*gin.Engine, error) {
	if err := controller.RegisterValidators(); err != nil {
		return nil, err
	}

	// Recovery runs inside Logger so recovered panics are logged with their 500 status.
	server.Use(middleware.Logger(), middleware.Recovery(), middleware.CORS())

	server.GET("/ping", con.Ping)

	products := server.Group("/products")
	{
		products.POST("", productCtr.CreateProduct)
		products.GET("", productCtr.ListProducts)
		products.GET("/:id", productCtr.GetProduct)
		products.PUT("/:id", productCtr.UpdateProduct)
		products.DELETE("/:id", productCtr.DeleteProduct)
	}

	return server, nil
}
