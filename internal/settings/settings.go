package settings

import (
	"fmt"
	"strconv"
	"sync"

	"localassist/internal/catalog"
	"localassist/internal/resource"
)

const (
	keyModelPrefix   = "model."
	keyGuardrail     = "guardrail.level"
	keyCustomPercent = "guardrail.custom_percent"
	keyRemoteURL     = "remote.url"
	keyRemoteAPIKey  = "remote.api_key"
	keyTemperature   = "generation.temperature"
	keyMaxTokens     = "generation.max_tokens"
)

// Settings is the typed view of the store.
type Settings struct {
	// Models maps category to the selected model name.
	Models        map[catalog.Category]string
	Guardrail     resource.Level
	CustomPercent int
	RemoteURL     string
	RemoteAPIKey  string
	Temperature   float32
	MaxTokens     int
}

// Defaults are used for keys absent from the store.
func Defaults() Settings {
	return Settings{
		Models:      map[catalog.Category]string{},
		Guardrail:   resource.LevelBalanced,
		Temperature: 0.7,
		MaxTokens:   1024,
	}
}

// Policy returns the guardrail policy.
func (s Settings) Policy() resource.Policy {
	return resource.Policy{Level: s.Guardrail, CustomPercent: s.CustomPercent}
}

// Model returns the selected model for cat, or "".
func (s Settings) Model(cat catalog.Category) string { return s.Models[cat] }

func (s Settings) clone() Settings {
	c := s
	c.Models = make(map[catalog.Category]string, len(s.Models))
	for k, v := range s.Models {
		c.Models[k] = v
	}
	return c
}

func (s Settings) pairs() map[string]string {
	kv := map[string]string{
		keyGuardrail:     string(s.Guardrail),
		keyCustomPercent: strconv.Itoa(s.CustomPercent),
		keyRemoteURL:     s.RemoteURL,
		keyRemoteAPIKey:  s.RemoteAPIKey,
		keyTemperature:   strconv.FormatFloat(float64(s.Temperature), 'f', -1, 32),
		keyMaxTokens:     strconv.Itoa(s.MaxTokens),
	}
	for cat, name := range s.Models {
		kv[keyModelPrefix+string(cat)] = name
	}
	return kv
}

// Load reads settings from st, falling back to def for absent or
// unparsable values.
func Load(st Store, def Settings) (Settings, error) {
	s := def.clone()
	for _, cat := range catalog.Categories {
		v, ok, err := st.Get(keyModelPrefix + string(cat))
		if err != nil {
			return s, err
		}
		if ok && v != "" {
			s.Models[cat] = v
		}
	}
	if v, ok, err := st.Get(keyGuardrail); err != nil {
		return s, err
	} else if ok {
		if lvl, perr := resource.ParseLevel(v); perr == nil {
			s.Guardrail = lvl
		}
	}
	if v, ok, err := st.Get(keyCustomPercent); err != nil {
		return s, err
	} else if ok {
		if n, perr := strconv.Atoi(v); perr == nil {
			s.CustomPercent = n
		}
	}
	if v, ok, err := st.Get(keyRemoteURL); err != nil {
		return s, err
	} else if ok {
		s.RemoteURL = v
	}
	if v, ok, err := st.Get(keyRemoteAPIKey); err != nil {
		return s, err
	} else if ok {
		s.RemoteAPIKey = v
	}
	if v, ok, err := st.Get(keyTemperature); err != nil {
		return s, err
	} else if ok {
		if f, perr := strconv.ParseFloat(v, 32); perr == nil {
			s.Temperature = float32(f)
		}
	}
	if v, ok, err := st.Get(keyMaxTokens); err != nil {
		return s, err
	} else if ok {
		if n, perr := strconv.Atoi(v); perr == nil {
			s.MaxTokens = n
		}
	}
	return s, nil
}

// Service holds the current settings and persists updates.
type Service struct {
	store Store

	mu        sync.RWMutex
	cur       Settings
	observers []func(Settings)
}

// NewService loads settings from store over def.
func NewService(store Store, def Settings) (*Service, error) {
	cur, err := Load(store, def)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return &Service{store: store, cur: cur}, nil
}

// Current returns a copy of the settings.
func (s *Service) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.clone()
}

// Policy returns the current guardrail policy.
func (s *Service) Policy() resource.Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Policy()
}

// OnChange registers fn to run after each successful Update.
func (s *Service) OnChange(fn func(Settings)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Update applies fn to a copy, validates the guardrail, and persists the
// keys that changed in one write. On failure neither the store nor the
// current settings change.
func (s *Service) Update(fn func(*Settings)) error {
	s.mu.Lock()
	next := s.cur.clone()
	fn(&next)
	lvl, err := resource.ParseLevel(string(next.Guardrail))
	if err != nil {
		s.mu.Unlock()
		return err
	}
	next.Guardrail = lvl
	if next.CustomPercent < 0 || next.CustomPercent > 100 {
		s.mu.Unlock()
		return fmt.Errorf("custom percent %d out of range 0-100", next.CustomPercent)
	}
	old := s.cur.pairs()
	changed := map[string]string{}
	for k, v := range next.pairs() {
		if ov, ok := old[k]; ok && ov == v {
			continue
		}
		changed[k] = v
	}
	if len(changed) > 0 {
		if err := s.store.SetMany(changed); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("persist settings: %w", err)
		}
	}
	s.cur = next
	obs := append([]func(Settings){}, s.observers...)
	snap := next.clone()
	s.mu.Unlock()
	for _, o := range obs {
		o(snap)
	}
	return nil
}

// Close closes the underlying store.
func (s *Service) Close() error { return s.store.Close() }
