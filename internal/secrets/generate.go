package secrets

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/kaniop/kaniop/api/v1alpha1"
)

const (
	passwordLength = 48
	passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// GeneratePassword returns a CSPRNG-sourced alphanumeric password of
// passwordLength characters, matching the entropy budget the Kanidm CLI's
// own `kanidmd recover-account` uses for generated credentials.
func GeneratePassword() (string, error) {
	out := make([]byte, passwordLength)
	alphabetLen := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("generating password: %w", err)
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}

// RotationDue reports whether a credential last rotated at rotatedAt (as
// parsed from LastRotationTimeAnnotation; the zero time if absent or
// malformed) is due for rotation under policy.
func RotationDue(policy *v1alpha1.APITokenRotationPolicy, rotatedAt time.Time, now time.Time) bool {
	if policy == nil || !policy.Enabled {
		return false
	}
	if rotatedAt.IsZero() {
		return true
	}
	period := time.Duration(policy.PeriodDays) * 24 * time.Hour
	return now.Sub(rotatedAt) >= period
}

// ParseRotatedAt parses a LastRotationTimeAnnotation value, returning the
// zero time for an empty or malformed value rather than an error: a
// missing timestamp just means "rotation is due".
func ParseRotatedAt(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SetRotationAnnotations stamps the three rotation-metadata annotations
// required of every Secret under a rotation policy. now is recorded as
// the new last-rotation-time: callers call this exactly when they
// (re)generate the Secret's contents, never on a no-op reconcile.
func SetRotationAnnotations(annotations map[string]string, enabled bool, periodDays int, now time.Time) map[string]string {
	if annotations == nil {
		annotations = map[string]string{}
	}
	annotations[RotationEnabledAnnotation] = strconv.FormatBool(enabled)
	annotations[RotationPeriodDaysAnnotation] = strconv.Itoa(periodDays)
	annotations[LastRotationTimeAnnotation] = now.UTC().Format(time.RFC3339)
	return annotations
}
