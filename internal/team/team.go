// Package team реализует чтение и обновление данных бригады техников.
package team

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/fieldservice-dashboard/internal/apperror"
	"github.com/mmeshcher/fieldservice-dashboard/internal/backend"
	"github.com/mmeshcher/fieldservice-dashboard/internal/model"
	"github.com/mmeshcher/fieldservice-dashboard/internal/session"
	"github.com/mmeshcher/fieldservice-dashboard/internal/validation"
)

var (
	// ErrNotTeamMember возвращается, если пользователь изменяет чужую бригаду.
	ErrNotTeamMember = errors.New("user is not a member of this team")
	// ErrNoTeam возвращается, если пользователь не состоит в бригаде.
	ErrNoTeam = errors.New("user has no technician team")
)

// API описывает вызовы бэкенда по бригадам.
type API interface {
	GetTeam(ctx context.Context, id int64) (*model.TechnicianTeam, error)
	UpdateTeam(ctx context.Context, id int64, in model.UpdateTechnicianTeam) (*model.TechnicianTeam, error)
	ListTeams(ctx context.Context) ([]model.TechnicianTeam, error)
}

// Update содержит изменения данных бригады. Nil в DailyBreaks означает «не менять».
type Update struct {
	Name        *string            `json:"name,omitempty"`
	DailyBreaks []model.DailyBreak `json:"dailyBreaks,omitempty"`
}

// Service выполняет операции над бригадами от имени текущей сессии.
type Service struct {
	api      API
	sessions session.Reader
	logger   *zap.Logger
}

// NewService создаёт сервис бригад.
func NewService(api API, sessions session.Reader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, sessions: sessions, logger: logger}
}

// MyTeamID возвращает идентификатор бригады текущего пользователя.
func (s *Service) MyTeamID() (int64, error) {
	snap := s.sessions.Snapshot()
	if !snap.Authenticated {
		return 0, session.ErrNotAuthenticated
	}
	if snap.User.TeamID == nil {
		return 0, ErrNoTeam
	}
	return *snap.User.TeamID, nil
}

// Get возвращает бригаду по идентификатору.
func (s *Service) Get(ctx context.Context, id int64) (*model.TechnicianTeam, error) {
	if !s.sessions.Snapshot().Authenticated {
		return nil, session.ErrNotAuthenticated
	}
	t, err := s.api.GetTeam(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get team %d: %w", id, err)
	}
	return t, nil
}

// List возвращает все бригады.
func (s *Service) List(ctx context.Context) ([]model.TechnicianTeam, error) {
	if !s.sessions.Snapshot().Authenticated {
		return nil, session.ErrNotAuthenticated
	}
	return s.api.ListTeams(ctx)
}

// Update изменяет название и ежедневные перерывы бригады. Изменять бригаду может
// только её участник.
func (s *Service) Update(ctx context.Context, id int64, upd Update) (*model.TechnicianTeam, error) {
	myTeam, err := s.MyTeamID()
	if err != nil {
		return nil, err
	}
	if myTeam != id {
		return nil, ErrNotTeamMember
	}

	in := model.UpdateTechnicianTeam{}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, &apperror.ValidationError{Fields: []apperror.FieldError{{Field: "name", Message: "Team name is required"}}}
		}
		in.Name = &name
	}
	if upd.DailyBreaks != nil {
		breaks, err := validation.ValidateDailyBreaks(upd.DailyBreaks)
		if err != nil {
			return nil, err
		}
		in.DailyBreaks = &breaks
	}

	t, err := s.api.UpdateTeam(ctx, id, in)
	if err != nil {
		if verr, ok := backend.ValidationErrorOf(err); ok {
			return nil, verr
		}
		s.logger.Warn("update team failed", zap.Int64("teamID", id), zap.Error(err))
		return nil, fmt.Errorf("update team %d: %w", id, err)
	}
	return t, nil
}
