package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	bookingpb "github.com/Leganyst/apartment-booking/internal/api/booking/v1"
	"github.com/Leganyst/apartment-booking/internal/booking"
	"github.com/Leganyst/apartment-booking/internal/config"
	"github.com/Leganyst/apartment-booking/internal/db"
	"github.com/Leganyst/apartment-booking/internal/logging"
	"github.com/Leganyst/apartment-booking/internal/model"
	"github.com/Leganyst/apartment-booking/internal/repository"
	"github.com/Leganyst/apartment-booking/internal/service"
)

func main() {
	// 1. Конфиг: .env (если есть) + переменные окружения.
	if err := config.LoadEnvFile(); err != nil {
		log.Fatalf("%v", err)
	}
	dbCfg, err := config.LoadDBConfig()
	if err != nil {
		log.Fatalf("load db config: %v", err)
	}
	appCfg, err := config.LoadAppConfig()
	if err != nil {
		log.Fatalf("load app config: %v", err)
	}

	logger := logging.New(os.Stdout, appCfg.LogLevel)
	slog.SetDefault(logger)

	// 2. Подключаемся к БД через GORM.
	gormDB, err := db.NewGormDB(dbCfg)
	if err != nil {
		log.Fatalf("init db: %v", err)
	}
	defer db.Close(gormDB)

	// 3. Миграции моделей.
	if err := model.AutoMigrate(gormDB); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	// 4. Репозитории и сервисы.
	userRepo := repository.NewGormUserRepository(gormDB)
	apartmentRepo := repository.NewGormApartmentRepository(gormDB)

	bookingSvc := service.NewBookingServiceWithLogger(gormDB, appCfg.Policy(), booking.NewBookingID, nil, logger)
	apartmentSvc := service.NewApartmentService(apartmentRepo, nil, logger)
	identitySvc := service.NewIdentityService(userRepo, logger)

	if err := bootstrapAdmin(context.Background(), identitySvc, appCfg.BootstrapAdmin); err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	}

	// 5. Гоняем sweep на старте, дальше он идёт перед каждым чтением.
	if n, err := bookingSvc.Sweep(context.Background()); err != nil {
		log.Fatalf("initial sweep: %v", err)
	} else if n > 0 {
		logger.Info("initial sweep", "count", n)
	}

	// 6. Настраиваем gRPC-сервер.
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(service.UnaryLoggingInterceptor(logger)))
	bookingpb.RegisterBookingServiceServer(grpcServer, service.NewBookingGRPCServer(bookingSvc, apartmentSvc, identitySvc))

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus(bookingpb.ServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", appCfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen %s: %v", appCfg.GRPCAddr, err)
	}

	logger.Info("booking gRPC server listening", "addr", appCfg.GRPCAddr, "db_driver", dbCfg.Driver)

	// 7. Запускаем сервер в горутине.
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("grpc serve: %v", err)
		}
	}()

	// 8. Грейсфул-шатдаун по сигналу.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down gRPC server")
	healthSrv.Shutdown()
	grpcServer.GracefulStop()
}

// bootstrapAdmin заводит первого администратора, если его ещё нет.
func bootstrapAdmin(ctx context.Context, identity *service.IdentityService, username string) error {
	if username == "" || username == "-" {
		return nil
	}
	u, err := identity.RegisterOperator(ctx, service.OperatorInput{
		ID:          username,
		Username:    username,
		DisplayName: username,
		Role:        model.UserRoleAdmin,
	})
	var vErr *booking.ValidationError
	if errors.As(err, &vErr) {
		if _, taken := vErr.FieldErrors["username"]; taken {
			return nil
		}
	}
	if err != nil {
		return err
	}
	slog.Info("bootstrap admin created", "user_id", u.ID)
	return nil
}
