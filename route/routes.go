package route

import (
	"cafes/controller"
	"github.com/gin-gonic/gin"
)

func CafeRoutes(router *gin.Engine, cafes *controller.CafeController) {
	router.GET("/", cafes.Home)
	router.GET("/add", cafes.ShowAddForm)
	router.POST("/add", cafes.AddCafe)
	router.GET("/delete", cafes.ShowDeleteForm)
	router.POST("/delete", cafes.DeleteCafe)
	router.GET("/export", cafes.ExportExcel)
	router.GET("/import", cafes.ShowImportForm)
	router.POST("/import", cafes.BulkAddCafes)
	router.GET("/healthz", cafes.Health)
}
