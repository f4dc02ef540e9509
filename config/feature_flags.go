package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles. Each flag has a default, may be set
// in the dojo file and is finally overridden by a FEATURE_* variable.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	now func() time.Time
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// Predefined feature flag names.
const (
	// === Generated text ===
	FeatureSessionFeedback   = "textgen.session_feedback"   // Parent feedback after a session
	FeatureWelcomeMessages   = "textgen.welcome_messages"   // Welcome e-mails on roster import
	FeaturePromotionMessages = "textgen.promotion_messages" // Gemini congratulations on promotion

	// === Integrations ===
	FeatureEventForwarding = "events.redis_forwarding" // Publish domain events to Redis
	FeatureSpreadsheets    = "imports.spreadsheets"    // Accept xlsx/csv uploads

	// === Background jobs ===
	FeatureGradingDigest = "scheduler.grading_digest" // Periodic list of grading-ready students
)

// LoadFeatureFlags builds the flags from defaults, then file values, then
// the environment.
func LoadFeatureFlags(file map[string]bool) *FeatureFlags {
	ff := &FeatureFlags{
		features: make(map[string]*Feature),
		now:      time.Now,
	}

	ff.initializeDefaults()

	for name, enabled := range file {
		if f, ok := ff.features[name]; ok {
			f.Enabled = enabled
		}
	}

	ff.loadFromEnvironment()

	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	defaults := []Feature{
		{Name: FeatureSessionFeedback, Description: "Generate parent feedback when a coach asks for it", Enabled: true},
		{Name: FeatureWelcomeMessages, Description: "Generate welcome e-mails for imported students", Enabled: true},
		{Name: FeaturePromotionMessages, Description: "Generate a congratulation message on promotion", Enabled: true},
		{Name: FeatureEventForwarding, Description: "Forward domain events to a Redis channel", Enabled: true},
		{Name: FeatureSpreadsheets, Description: "Accept spreadsheet uploads in roster import", Enabled: true},
		{Name: FeatureGradingDigest, Description: "Log a digest of students ready for grading", Enabled: true},
	}
	for i := range defaults {
		f := defaults[i]
		ff.features[f.Name] = &f
	}
}

func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		if val := os.Getenv(featureNameToEnvKey(name)); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "textgen.session_feedback" -> "FEATURE_TEXTGEN_SESSION_FEEDBACK"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled reports whether a feature is on right now. Unknown names are off.
func (ff *FeatureFlags) IsEnabled(featureName string) bool {
	if ff == nil {
		return false
	}
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	if !ok || !feature.Enabled {
		return false
	}

	now := ff.now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}
	return true
}

// SetWindow limits a feature to [from, until]. Nil bounds are open.
func (ff *FeatureFlags) SetWindow(featureName string, from, until *time.Time) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	if from != nil && until != nil && until.Before(*from) {
		return ErrInvalidWindow
	}
	feature.EnabledFrom, feature.EnabledUntil = from, until
	return nil
}

// EnableFeature turns a feature on.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.set(featureName, true)
}

// DisableFeature turns a feature off.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.set(featureName, false)
}

func (ff *FeatureFlags) set(featureName string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	feature.Enabled = enabled
	return nil
}

// EnabledNames returns the names of features that are on, sorted.
func (ff *FeatureFlags) EnabledNames() []string {
	ff.mu.RLock()
	names := make([]string, 0, len(ff.features))
	for name := range ff.features {
		names = append(names, name)
	}
	ff.mu.RUnlock()

	out := names[:0]
	for _, name := range names {
		if ff.IsEnabled(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidWindow   = &FeatureFlagError{Message: "feature window ends before it starts"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
