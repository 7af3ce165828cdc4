// @title SCORM Trends 报表 API
// @version 1.0
// @description SCORM 学习活动的题目作答趋势统计服务。

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"scorm_trends_backend/internal/app"
	"scorm_trends_backend/internal/config"
	"scorm_trends_backend/internal/render"
	"scorm_trends_backend/internal/service"
	"syscall"
)

func main() {
	// 命令行参数
	configDir := flag.String("config", "configs", "配置文件目录")
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时执行数据库迁移")
	reportID := flag.Uint("report", 0, "输出指定 SCORM 活动的趋势报表到标准输出后退出")
	groupID := flag.Uint("group", 0, "配合 -report 使用的小组 ID，0 表示全部")
	hashPassword := flag.String("hash-password", "", "输出密码的 bcrypt 哈希后退出，用于初始化用户")
	flag.Parse()

	if *hashPassword != "" {
		hashed, err := service.HashPassword(*hashPassword)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		fmt.Println(hashed)
		return
	}

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}
	defer application.Close()

	if cfg.MigrateOnly {
		log.Println("数据库迁移完成，退出程序")
		return
	}

	if *reportID != 0 {
		sink := render.NewTextTable(os.Stdout)
		if err := application.Trends.Display(ctx, uint(*reportID), uint(*groupID), sink); err != nil {
			application.Close()
			log.Fatalf("report: %v", err)
		}
		return
	}

	if err := application.Run(ctx); err != nil {
		application.Close()
		log.Fatalf("server: %v", err)
	}
}
