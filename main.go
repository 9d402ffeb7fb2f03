package main

import (
	"fmt"

	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/config"
	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/models"
	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/routers"
	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/service"
)

func main() {
	config.InitConfig()
	fmt.Println("Server starting on port", config.AppConfig.Server.Port)
	models.InitDB()
	fmt.Println("Database initialized")

	service.InitQueue()
	fmt.Println("Queue initialized")

	service.InitMinIO()
	fmt.Println("MinIO initialized")

	processor := service.NewProcessor(models.GormDB)
	processor.StartProcessor(2)

	r := routers.InitRouter()
	r.Run(config.AppConfig.Server.Port)
}
