package providers

import (
	"time"

	"github.com/brizzai/oauth-flow/internal/auth/constants"
	"github.com/brizzai/oauth-flow/internal/auth/models"
	"github.com/brizzai/oauth-flow/internal/config"
)

// Stamper formats the current time for the Timestamp key of user info results
type Stamper struct {
	Layout   string
	Location *time.Location
	Now      func() time.Time
}

// NewStamper builds a Stamper from the configured layout and timezone
func NewStamper(cfg config.TimestampConfig) (*Stamper, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &Stamper{
		Layout:   cfg.Layout,
		Location: loc,
		Now:      time.Now,
	}, nil
}

// Format returns the current time in the configured zone and layout
func (s *Stamper) Format() string {
	return s.Now().In(s.Location).Format(s.Layout)
}

// Stamp sets the Timestamp key, replacing any provider value of the same name
func (s *Stamper) Stamp(info models.UserInfoResult) models.UserInfoResult {
	if info == nil {
		info = models.UserInfoResult{}
	}
	info[constants.TimestampKey] = s.Format()
	return info
}
