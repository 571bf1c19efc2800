package main

import (
	"log/slog"

	"github.com/google/uuid"

	"chakastays/internal/app/commands"
	"chakastays/internal/app/dataservice"
	"chakastays/internal/app/dto"
	adminapp "chakastays/internal/app/handlers/admin"
	availabilityapp "chakastays/internal/app/handlers/availability"
	blocksapp "chakastays/internal/app/handlers/blocks"
	bookingapp "chakastays/internal/app/handlers/booking"
	dashboardapp "chakastays/internal/app/handlers/dashboard"
	favoritesapp "chakastays/internal/app/handlers/favorites"
	meapp "chakastays/internal/app/handlers/me"
	notificationsapp "chakastays/internal/app/handlers/notifications"
	propertyapp "chakastays/internal/app/handlers/properties"
	"chakastays/internal/app/handlers/support"
	"chakastays/internal/app/middleware"
	"chakastays/internal/app/outbox"
	"chakastays/internal/app/queries"
	"chakastays/internal/domain/analytics"
	"chakastays/internal/infra/config"
)

// wiring carries the adapters the buses are built on.
type wiring struct {
	Data        dataservice.Service
	Gateway     support.Gateway
	Outbox      outbox.Outbox
	Idempotency middleware.IdempotencyStore
	Files       dataservice.Files
	Logger      *slog.Logger
}

type buses struct {
	Commands commands.Bus
	Queries  queries.Bus
	Trigger  *notificationsapp.Trigger
}

func buildBuses(cfg config.Config, w wiring) (buses, error) {
	policy, err := dataservice.ParseBlockOverlapPolicy(cfg.BlockOverlapPolicy)
	if err != nil {
		return buses{}, err
	}
	keyMode, err := analytics.ParseKeyMode(cfg.RevenueKeyMode)
	if err != nil {
		return buses{}, err
	}
	gw := w.Gateway
	encoder := outbox.JSONEventEncoder{}
	logger := w.Logger

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, bookingapp.RequestBookingCommand{}.Key(), &bookingapp.RequestBookingHandler{
		Gateway: gw,
		Outbox:  w.Outbox,
		Encoder: encoder,
		Logger:  logger,
	})
	commands.RegisterHandler(commandBus, bookingapp.CancelBookingCommand{}.Key(), &bookingapp.CancelBookingHandler{
		Gateway: gw,
		Outbox:  w.Outbox,
		Encoder: encoder,
		Logger:  logger,
	})
	commands.RegisterHandler(commandBus, blocksapp.BlockDatesCommand{}.Key(), &blocksapp.BlockDatesHandler{
		Gateway: gw,
		Policy:  policy,
		Logger:  logger,
	})
	commands.RegisterHandler(commandBus, blocksapp.UnblockDatesCommand{}.Key(), &blocksapp.UnblockDatesHandler{
		Gateway: gw,
		Logger:  logger,
	})
	commands.RegisterHandler(commandBus, propertyapp.CreatePropertyCommand{}.Key(), &propertyapp.CreatePropertyHandler{
		Gateway:  gw,
		Currency: cfg.Currency,
		Outbox:   w.Outbox,
		Encoder:  encoder,
		Logger:   logger,
	})
	commands.RegisterHandler(commandBus, propertyapp.UpdatePropertyCommand{}.Key(), &propertyapp.UpdatePropertyHandler{
		Gateway: gw,
		Logger:  logger,
	})
	commands.RegisterHandler(commandBus, propertyapp.UploadPropertyImageCommand{}.Key(), &propertyapp.UploadPropertyImageHandler{
		Gateway: gw,
		Files:   w.Files,
		Bucket:  cfg.S3PropertyBucket,
		Logger:  logger,
	})
	commands.RegisterHandler(commandBus, favoritesapp.AddFavoriteCommand{}.Key(), &favoritesapp.AddFavoriteHandler{Gateway: gw})
	commands.RegisterHandler(commandBus, favoritesapp.RemoveFavoriteCommand{}.Key(), &favoritesapp.RemoveFavoriteHandler{Gateway: gw})
	commands.RegisterHandler(commandBus, meapp.UpdateProfileCommand{}.Key(), &meapp.UpdateProfileHandler{Gateway: gw})
	commands.RegisterHandler(commandBus, meapp.UploadAvatarCommand{}.Key(), &meapp.UploadAvatarHandler{
		Gateway: gw,
		Files:   w.Files,
		Bucket:  cfg.S3AvatarBucket,
		Logger:  logger,
	})

	feed := &notificationsapp.Handlers{Gateway: gw, Logger: logger}
	commands.RegisterHandler(commandBus, notificationsapp.MarkReadCommand{}.Key(),
		commands.HandlerFunc[notificationsapp.MarkReadCommand, *dto.MarkReadResult](feed.MarkRead))
	commands.RegisterHandler(commandBus, notificationsapp.MarkAllReadCommand{}.Key(),
		commands.HandlerFunc[notificationsapp.MarkAllReadCommand, *dto.NotificationFeed](feed.MarkAllRead))

	moderation := &adminapp.Handlers{Gateway: gw, Outbox: w.Outbox, Encoder: encoder, Logger: logger}
	commands.RegisterHandler(commandBus, adminapp.BanPropertyCommand{}.Key(),
		commands.HandlerFunc[adminapp.BanPropertyCommand, *dto.PropertyDetail](moderation.Ban))
	commands.RegisterHandler(commandBus, adminapp.UnbanPropertyCommand{}.Key(),
		commands.HandlerFunc[adminapp.UnbanPropertyCommand, *dto.PropertyDetail](moderation.Unban))
	commands.RegisterHandler(commandBus, adminapp.RemovePropertyCommand{}.Key(),
		commands.HandlerFunc[adminapp.RemovePropertyCommand, *adminapp.RemovalResult](moderation.Remove))

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, propertyapp.SearchPropertiesQuery{}.Key(), &propertyapp.SearchPropertiesHandler{Gateway: gw})
	queries.RegisterHandler(queryBus, propertyapp.GetPropertyQuery{}.Key(), &propertyapp.GetPropertyHandler{Gateway: gw})
	queries.RegisterHandler(queryBus, propertyapp.ListHostPropertiesQuery{}.Key(), &propertyapp.ListHostPropertiesHandler{Gateway: gw})
	queries.RegisterHandler(queryBus, availabilityapp.GetAvailabilityQuery{}.Key(), &availabilityapp.GetAvailabilityHandler{Gateway: gw})
	queries.RegisterHandler(queryBus, bookingapp.CheckBookingQuery{}.Key(), &bookingapp.CheckBookingHandler{Gateway: gw})
	queries.RegisterHandler(queryBus, bookingapp.ListGuestBookingsQuery{}.Key(), &bookingapp.ListGuestBookingsHandler{Gateway: gw})
	queries.RegisterHandler(queryBus, dashboardapp.HostDashboardQuery{}.Key(), &dashboardapp.HostDashboardHandler{
		Gateway:  gw,
		Options:  analytics.Options{Window: cfg.RevenueWindow, Mode: keyMode},
		Currency: cfg.Currency,
	})
	queries.RegisterHandler(queryBus, favoritesapp.ListFavoritesQuery{}.Key(), &favoritesapp.ListFavoritesHandler{Gateway: gw})
	queries.RegisterHandler(queryBus, notificationsapp.ListNotificationsQuery{}.Key(),
		queries.HandlerFunc[notificationsapp.ListNotificationsQuery, dto.NotificationFeed](feed.List))

	validator := middleware.NewStructValidator()
	authorizer := middleware.RoleAuthorizer{}
	cmdBus := middleware.ChainCommands(
		commandBus,
		middleware.Logging(logger),
		middleware.Validation(validator),
		middleware.Authorization(authorizer),
		middleware.Idempotency(w.Idempotency, nil, gw.Now),
		middleware.OutboxFlush(w.Outbox),
	)
	qryBus := middleware.ChainQueries(
		queryBus,
		middleware.QueryLogging(logger),
		middleware.QueryValidation(validator),
		middleware.QueryAuthorization(authorizer),
	)

	return buses{
		Commands: cmdBus,
		Queries:  qryBus,
		Trigger:  &notificationsapp.Trigger{Gateway: gw, IDs: uuid.NewString, Logger: logger},
	}, nil
}
