package transcript

import (
	"errors"
	"fmt"
	"strings"
)

// Tier identifies one attempt strategy in the fallback chain.
type Tier int

const (
	TierReference Tier = iota
	TierPreferred
	TierListing
	TierFallbackTool
	TierParse
	TierStore
)

func (t Tier) String() string {
	switch t {
	case TierReference:
		return "reference"
	case TierPreferred:
		return "preferred captions"
	case TierListing:
		return "track listing"
	case TierFallbackTool:
		return "yt-dlp fallback"
	case TierParse:
		return "cue parsing"
	case TierStore:
		return "storage"
	default:
		return "unknown tier"
	}
}

// Kind classifies a tier failure. The terminal/recoverable distinction drives
// whether the orchestrator advances to the next tier.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidReference
	KindSourceDisabled
	KindSourceUnavailable
	KindNoMatchForLanguages
	KindNoTracksAvailable
	KindFallbackToolUnavailable
	KindNoCaptionsOffered
	KindFallbackExtractionFailed
	KindEmptyFallbackResult
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindInvalidReference:
		return "InvalidReference"
	case KindSourceDisabled:
		return "SourceDisabled"
	case KindSourceUnavailable:
		return "SourceUnavailable"
	case KindNoMatchForLanguages:
		return "NoMatchForLanguages"
	case KindNoTracksAvailable:
		return "NoTracksAvailable"
	case KindFallbackToolUnavailable:
		return "FallbackToolUnavailable"
	case KindNoCaptionsOffered:
		return "NoCaptionsOffered"
	case KindFallbackExtractionFailed:
		return "FallbackExtractionFailed"
	case KindEmptyFallbackResult:
		return "EmptyFallbackResult"
	case KindStorage:
		return "Storage"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no later tier can possibly succeed once this
// failure has been observed.
func (k Kind) Terminal() bool {
	switch k {
	case KindInvalidReference, KindSourceDisabled, KindSourceUnavailable, KindStorage:
		return true
	default:
		return false
	}
}

// TierError is a classified failure from one tier. Every adapter maps its own
// low-level errors into this type; the raw cause is kept for diagnostics.
type TierError struct {
	Tier    Tier
	Kind    Kind
	Message string
	Cause   error
}

func NewTierError(tier Tier, kind Kind, message string) *TierError {
	return &TierError{Tier: tier, Kind: kind, Message: message}
}

func WrapTierError(tier Tier, kind Kind, message string, cause error) *TierError {
	return &TierError{Tier: tier, Kind: kind, Message: message, Cause: cause}
}

func (e *TierError) Error() string {
	parts := []string{fmt.Sprintf("[%s] %s: %s", e.Kind, e.Tier, e.Message)}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}
	return strings.Join(parts, " | ")
}

func (e *TierError) Unwrap() error {
	return e.Cause
}

// KindOf extracts the failure kind from an error chain, or KindUnknown.
func KindOf(err error) Kind {
	var te *TierError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given failure kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// AsTier coerces err into a TierError, classifying unanticipated errors as
// recoverable KindUnknown failures of the given tier so that raw errors never
// cross tier boundaries.
func AsTier(err error, tier Tier) *TierError {
	var te *TierError
	if errors.As(err, &te) {
		return te
	}
	return WrapTierError(tier, KindUnknown, "unexpected error", err)
}

// FetchError aggregates every tier attempt after the chain is exhausted. The
// caller sees all causes, not just the last one.
type FetchError struct {
	VideoID  string
	Attempts []*TierError
}

func (e *FetchError) Error() string {
	tiers := make([]string, 0, len(e.Attempts))
	causes := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		tiers = append(tiers, a.Tier.String())
		causes = append(causes, a.Error())
	}
	return fmt.Sprintf("no transcript for %s: tried %s; all failed: %s",
		e.VideoID, strings.Join(tiers, ", "), strings.Join(causes, "; "))
}

func (e *FetchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a)
	}
	return errs
}

// Last returns the final concrete attempt, or nil.
func (e *FetchError) Last() *TierError {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1]
}
