package blocks

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"chakastays/internal/app/apperr"
	"chakastays/internal/app/commands"
	"chakastays/internal/app/dataservice"
	"chakastays/internal/app/dto"
	"chakastays/internal/app/handlers/support"
	"chakastays/internal/app/remote"
	"chakastays/internal/app/session"
	domainbooking "chakastays/internal/domain/booking"
	domainproperties "chakastays/internal/domain/properties"
	"chakastays/internal/domain/shared/daterange"
	"chakastays/internal/domain/user"
)

const (
	BlockDatesKey   = "host.blocks.create"
	UnblockDatesKey = "host.blocks.delete"
)

type BlockDatesCommand struct {
	Who        session.Principal
	PropertyID string `json:"property_id" validate:"required"`
	Start      time.Time
	End        time.Time
	Reason     string `json:"reason" validate:"max=200"`
}

func (c BlockDatesCommand) Key() string { return BlockDatesKey }

func (c BlockDatesCommand) Caller() session.Principal { return c.Who }

func (c BlockDatesCommand) RequiredRole() user.Role { return user.RoleHost }

// BlockDatesHandler adds a host block. Under BlockReject a block touching a live booking
// is refused; overlapping another block is always fine.
type BlockDatesHandler struct {
	support.Gateway
	Policy dataservice.BlockOverlapPolicy
	Logger *slog.Logger
}

func (h *BlockDatesHandler) Handle(ctx context.Context, cmd BlockDatesCommand) (*dto.BlockedDate, error) {
	today := h.Today()
	dr, err := daterange.New(cmd.Start, cmd.End)
	if err != nil || dr.Start.Before(today) {
		return nil, apperr.Validation(string(domainbooking.ReasonInvalidRange), "")
	}
	property, err := h.Property(ctx, domainproperties.PropertyID(strings.TrimSpace(cmd.PropertyID)))
	if err != nil {
		return nil, err
	}
	if !property.OwnedBy(domainproperties.HostID(cmd.Who.UserID)) {
		return nil, support.NotOwner(BlockDatesKey)
	}
	policy := h.Policy
	if policy == "" {
		policy = dataservice.BlockReject
	}
	if policy == dataservice.BlockReject {
		idx, err := h.Availability(ctx, property.ID, today)
		if err != nil {
			return nil, err
		}
		if conflicts := idx.ConflictsWithBookings(dr); len(conflicts) > 0 {
			return nil, apperr.Validation(string(domainbooking.ReasonDatesUnavailable), dr.String())
		}
	}

	block, err := domainbooking.NewBlockedDate(domainbooking.BlockID(uuid.NewString()), property.ID, dr, cmd.Reason, h.Clock())
	if err != nil {
		return nil, support.Invalid(err)
	}
	if err := remote.Do(ctx, h.Remote, "blocks.insert", func(ctx context.Context) error {
		return h.Data.Blocks().Insert(ctx, cmd.Who.Actor(), block, policy)
	}); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("dates blocked", "property_id", property.ID, "block_id", block.ID, "range", dr.String())
	}
	result := dto.MapBlockedDate(block)
	return &result, nil
}

type UnblockDatesCommand struct {
	Who        session.Principal
	PropertyID string `json:"property_id" validate:"required"`
	BlockID    string `json:"block_id" validate:"required"`
}

func (c UnblockDatesCommand) Key() string { return UnblockDatesKey }

func (c UnblockDatesCommand) Caller() session.Principal { return c.Who }

func (c UnblockDatesCommand) RequiredRole() user.Role { return user.RoleHost }

type UnblockDatesHandler struct {
	support.Gateway
	Logger *slog.Logger
}

func (h *UnblockDatesHandler) Handle(ctx context.Context, cmd UnblockDatesCommand) (struct{}, error) {
	propertyID := domainproperties.PropertyID(strings.TrimSpace(cmd.PropertyID))
	blockID := domainbooking.BlockID(strings.TrimSpace(cmd.BlockID))
	if err := remote.Do(ctx, h.Remote, "blocks.delete", func(ctx context.Context) error {
		return h.Data.Blocks().Delete(ctx, cmd.Who.Actor(), propertyID, blockID)
	}); err != nil {
		return struct{}{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("dates unblocked", "property_id", propertyID, "block_id", blockID)
	}
	return struct{}{}, nil
}

var _ commands.Handler[BlockDatesCommand, *dto.BlockedDate] = (*BlockDatesHandler)(nil)
var _ commands.Handler[UnblockDatesCommand, struct{}] = (*UnblockDatesHandler)(nil)
