package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// InvitePolicy controls order freshness and invite expiry windows.
type InvitePolicy struct {
	PendingFreshnessMinutes int    `mapstructure:"pendingFreshnessMinutes"`
	EventGraceDays          int    `mapstructure:"eventGraceDays"`
	FallbackDays            int    `mapstructure:"fallbackDays"`
	DefaultTimezone         string `mapstructure:"defaultTimezone"`
}

func DefaultInvitePolicy() InvitePolicy {
	return InvitePolicy{
		PendingFreshnessMinutes: 15,
		EventGraceDays:          30,
		FallbackDays:            90,
		DefaultTimezone:         "Asia/Kolkata",
	}
}

func (p InvitePolicy) PendingFreshness() time.Duration {
	return time.Duration(p.PendingFreshnessMinutes) * time.Minute
}

// Location falls back to UTC when the configured zone is unknown.
func (p InvitePolicy) Location() *time.Location {
	name := strings.TrimSpace(p.DefaultTimezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

type InvitePolicyHolder struct {
	current atomic.Value // holds InvitePolicy
}

// NewStaticInvitePolicyHolder returns a holder that never reloads.
func NewStaticInvitePolicyHolder(policy InvitePolicy) *InvitePolicyHolder {
	holder := &InvitePolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewInvitePolicyHolder() (*InvitePolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("invite")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/scrollvite")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SCROLLVITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultInvitePolicy()
	v.SetDefault("invite.pendingFreshnessMinutes", defaults.PendingFreshnessMinutes)
	v.SetDefault("invite.eventGraceDays", defaults.EventGraceDays)
	v.SetDefault("invite.fallbackDays", defaults.FallbackDays)
	v.SetDefault("invite.defaultTimezone", defaults.DefaultTimezone)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var policy InvitePolicy
	if err := v.UnmarshalKey("invite", &policy); err != nil {
		return nil, err
	}
	if err := validateInvitePolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticInvitePolicyHolder(policy)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated InvitePolicy
		if err := v.UnmarshalKey("invite", &updated); err != nil {
			log.Printf("[invite-policy] reload failed: %v", err)
			return
		}
		if err := validateInvitePolicy(updated); err != nil {
			log.Printf("[invite-policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[invite-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *InvitePolicyHolder) Get() InvitePolicy {
	if h == nil {
		return DefaultInvitePolicy()
	}
	policy, ok := h.current.Load().(InvitePolicy)
	if !ok {
		return DefaultInvitePolicy()
	}
	return policy
}

func validateInvitePolicy(p InvitePolicy) error {
	if p.PendingFreshnessMinutes <= 0 {
		return errors.New("invite.pendingFreshnessMinutes must be positive")
	}
	if p.EventGraceDays < 0 {
		return errors.New("invite.eventGraceDays cannot be negative")
	}
	if p.FallbackDays <= 0 {
		return errors.New("invite.fallbackDays must be positive")
	}
	if _, err := time.LoadLocation(strings.TrimSpace(p.DefaultTimezone)); err != nil {
		return errors.New("invite.defaultTimezone is not a known location")
	}
	return nil
}
