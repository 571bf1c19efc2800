package me

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"chakastays/internal/app/commands"
	"chakastays/internal/app/dataservice"
	"chakastays/internal/app/dto"
	"chakastays/internal/app/handlers/support"
	"chakastays/internal/app/remote"
	"chakastays/internal/app/session"
	domainuser "chakastays/internal/domain/user"
)

const (
	UpdateProfileKey = "me.profile.update"
	UploadAvatarKey  = "me.avatar.upload"
)

var ErrFilesUnavailable = errors.New("me: file storage unavailable")

type UpdateProfileCommand struct {
	Who  session.Principal
	Name string `json:"name" validate:"required,max=120"`
}

func (c UpdateProfileCommand) Key() string { return UpdateProfileKey }

func (c UpdateProfileCommand) Caller() session.Principal { return c.Who }

type UploadAvatarCommand struct {
	Who         session.Principal
	ObjectKey   string `json:"object_key" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
	Reader      io.Reader
}

func (c UploadAvatarCommand) Key() string { return UploadAvatarKey }

func (c UploadAvatarCommand) Caller() session.Principal { return c.Who }

type UpdateProfileHandler struct {
	support.Gateway
}

func (h *UpdateProfileHandler) Handle(ctx context.Context, cmd UpdateProfileCommand) (*dto.UserProfile, error) {
	u, err := loadUser(ctx, h.Gateway, cmd.Who.UserID)
	if err != nil {
		return nil, err
	}
	if err := u.UpdateProfile(strings.TrimSpace(cmd.Name), u.AvatarURL, h.Clock()); err != nil {
		return nil, support.Invalid(err)
	}
	return saveUser(ctx, h.Gateway, u)
}

type UploadAvatarHandler struct {
	support.Gateway
	Files  dataservice.Files
	Bucket string
	Logger *slog.Logger
}

func (h *UploadAvatarHandler) Handle(ctx context.Context, cmd UploadAvatarCommand) (*dto.UserProfile, error) {
	if h.Files == nil {
		return nil, ErrFilesUnavailable
	}
	if cmd.Reader == nil {
		return nil, support.Invalid(errors.New("avatar body is required"))
	}
	u, err := loadUser(ctx, h.Gateway, cmd.Who.UserID)
	if err != nil {
		return nil, err
	}
	url, err := remote.Call(ctx, h.Remote, "files.upload", func(ctx context.Context) (string, error) {
		return h.Files.Upload(ctx, h.Bucket, cmd.ObjectKey, cmd.Reader, cmd.ContentType)
	})
	if err != nil {
		return nil, err
	}
	if err := u.UpdateProfile(u.Name, url, h.Clock()); err != nil {
		return nil, support.Invalid(err)
	}
	if h.Logger != nil {
		h.Logger.Info("avatar uploaded", "user_id", u.ID, "object_key", cmd.ObjectKey)
	}
	return saveUser(ctx, h.Gateway, u)
}

func loadUser(ctx context.Context, g support.Gateway, id string) (*domainuser.User, error) {
	return remote.Call(ctx, g.Remote, "users.by_id", func(ctx context.Context) (*domainuser.User, error) {
		return g.Data.Users().ByID(ctx, domainuser.ID(id))
	})
}

func saveUser(ctx context.Context, g support.Gateway, u *domainuser.User) (*dto.UserProfile, error) {
	if err := remote.Do(ctx, g.Remote, "users.save", func(ctx context.Context) error {
		return g.Data.Users().Save(ctx, u)
	}); err != nil {
		return nil, err
	}
	profile := dto.MapUserProfile(u)
	return &profile, nil
}

var _ commands.Handler[UpdateProfileCommand, *dto.UserProfile] = (*UpdateProfileHandler)(nil)
var _ commands.Handler[UploadAvatarCommand, *dto.UserProfile] = (*UploadAvatarHandler)(nil)
