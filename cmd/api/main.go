package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	"storebackend/internal/config"
	"storebackend/internal/domain/model"
	"storebackend/internal/handler"
	"storebackend/internal/infra/cache"
	"storebackend/internal/infra/db"
	infraRepo "storebackend/internal/infra/repository"
	"storebackend/internal/server"
	"storebackend/internal/usecase"
	"storebackend/internal/validator"
)

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func main() {
	//.envは無くても起動できる（本番はenv直指定）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal(err)
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Category{},
		&model.Product{},
		&model.ProductImage{},
		&model.Cart{},
		&model.CartItem{},
		&model.Checkout{},
		&model.CheckoutItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Address{},
		&model.InventoryAdjustment{},
		&model.AuditLog{},
	); err != nil {
		log.Fatal(err)
	}

	//Redis（レート制限用、無ければnil）
	rdb := cache.Connect(cfg.RedisAddr)

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	rtRepo := infraRepo.NewRefreshTokenGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	checkoutRepo := infraRepo.NewCheckoutGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	clock := &realClock{}

	//Usecase生成
	authUC := usecase.NewAuthUsecase(cfg, userRepo, rtRepo, validator.NewAuthValidator(userRepo))
	productUC := usecase.NewProductUsecase(productRepo, categoryRepo, inventoryRepo, auditRepo)
	cartUC := usecase.NewCartUsecase(cartRepo, cartRepo, productRepo)
	checkoutUC := usecase.NewCheckoutUsecase(txManager, addressRepo, clock, cfg.CheckoutTTL)
	cleanupUC := usecase.NewCleanupUsecase(txManager, checkoutRepo)
	orderUC := usecase.NewOrderUsecase(orderRepo, orderItemRepo, addressRepo)
	adminOrderUC := usecase.NewAdminOrderUsecase(orderRepo, orderItemRepo, userRepo, auditRepo)
	addressUC := usecase.NewAddressUsecase(addressRepo)

	//期限切れチェックアウトの掃除ジョブ
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			n, err := cleanupUC.SweepExpiredCheckouts(context.Background(), time.Now())
			if err != nil {
				log.Printf("sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("sweep: expired %d checkouts", n)
			}
		}
	}()

	//Handler生成とルート登録
	e := server.New(rdb)
	server.RegisterRoutes(e, cfg, userRepo, server.Handlers{
		Auth:         handler.NewAuthHandler(authUC),
		Product:      handler.NewProductHandler(productUC),
		Cart:         handler.NewCartHandler(cartUC),
		Checkout:     handler.NewCheckoutHandler(checkoutUC),
		Order:        handler.NewOrderHandler(orderUC),
		Address:      handler.NewAddressHandler(addressUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC),
	})

	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}

	if err := server.Start(e, addr); err != nil {
		log.Fatal(err)
	}
}
