package properties

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"chakastays/internal/app/commands"
	"chakastays/internal/app/dataservice"
	"chakastays/internal/app/dto"
	"chakastays/internal/app/handlers/support"
	"chakastays/internal/app/remote"
	"chakastays/internal/app/session"
	domainproperties "chakastays/internal/domain/properties"
	"chakastays/internal/domain/user"
)

const UploadPropertyImageKey = "host.properties.images.upload"

var ErrFilesUnavailable = errors.New("properties: file storage unavailable")

type UploadPropertyImageCommand struct {
	Who         session.Principal
	PropertyID  string `json:"property_id" validate:"required"`
	ObjectKey   string `json:"object_key" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
	Reader      io.Reader
}

func (c UploadPropertyImageCommand) Key() string { return UploadPropertyImageKey }

func (c UploadPropertyImageCommand) Caller() session.Principal { return c.Who }

func (c UploadPropertyImageCommand) RequiredRole() user.Role { return user.RoleHost }

type UploadPropertyImageHandler struct {
	support.Gateway
	Files  dataservice.Files
	Bucket string
	Logger *slog.Logger
}

func (h *UploadPropertyImageHandler) Handle(ctx context.Context, cmd UploadPropertyImageCommand) (*dto.ImageUploadResult, error) {
	if h.Files == nil {
		return nil, ErrFilesUnavailable
	}
	if cmd.Reader == nil {
		return nil, support.Invalid(errors.New("image body is required"))
	}
	p, err := h.Property(ctx, domainproperties.PropertyID(strings.TrimSpace(cmd.PropertyID)))
	if err != nil {
		return nil, err
	}
	if !p.OwnedBy(domainproperties.HostID(cmd.Who.UserID)) {
		return nil, support.NotOwner(UploadPropertyImageKey)
	}

	url, err := remote.Call(ctx, h.Remote, "files.upload", func(ctx context.Context) (string, error) {
		return h.Files.Upload(ctx, h.Bucket, cmd.ObjectKey, cmd.Reader, cmd.ContentType)
	})
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	if err := p.AddImage(url, h.Clock()); err != nil {
		return nil, support.Invalid(err)
	}
	if err := remote.Do(ctx, h.Remote, "properties.save", func(ctx context.Context) error {
		return h.Data.Properties().Save(ctx, p)
	}); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("property image added", "property_id", p.ID, "object_key", cmd.ObjectKey)
	}
	return &dto.ImageUploadResult{
		PropertyID: string(p.ID),
		URL:        url,
		Images:     append([]string(nil), p.Images...),
	}, nil
}

var _ commands.Handler[UploadPropertyImageCommand, *dto.ImageUploadResult] = (*UploadPropertyImageHandler)(nil)
