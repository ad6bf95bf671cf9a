// Package anonymity derives the public EXPERT-XX-NNNN handle shown in place of a consultant's identity.
package anonymity

import (
	"context"
	"fmt"

	"github.com/minexpert/bidwar/core"
	"github.com/minexpert/bidwar/expertise"
	"github.com/minexpert/bidwar/logger"
)

// Scheme produces the four-digit suffix for a consultant on a project.
type Scheme interface {
	Suffix(consultantID, projectID string) string
}

// RollingScheme uses the unkeyed polynomial hash. Anyone who knows both IDs can
// recompute the suffix; it hides identity from casual viewers only.
type RollingScheme struct{}

func (RollingScheme) Suffix(consultantID, projectID string) string {
	return core.ConsultantHashSuffix(consultantID, projectID)
}

// KeyedScheme uses HMAC-SHA256 under a secret, so suffixes cannot be reversed without the key.
type KeyedScheme struct {
	keys *KeyManager
}

// NewKeyedScheme returns a KeyedScheme using the KeyManager's secret.
func NewKeyedScheme(keys *KeyManager) KeyedScheme {
	return KeyedScheme{keys: keys}
}

func (s KeyedScheme) Suffix(consultantID, projectID string) string {
	return core.KeyedConsultantHashSuffix(s.keys.key, consultantID, projectID)
}

// Generator builds anonymous IDs from an expertise directory and a suffix scheme.
type Generator struct {
	directory expertise.Directory
	scheme    Scheme
	log       logger.Logger
}

// NewGenerator returns a Generator. A nil directory maps everyone to expertise.DefaultCode;
// a nil scheme selects RollingScheme.
func NewGenerator(directory expertise.Directory, scheme Scheme, log logger.Logger) *Generator {
	if scheme == nil {
		scheme = RollingScheme{}
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Generator{directory: directory, scheme: scheme, log: log}
}

// GenerateAnonymousID returns EXPERT-<code>-<suffix>. The same consultant and project
// always yield the same ID; the same consultant on another project usually does not.
// Lookup failures fall back to expertise.DefaultCode and never fail the call.
func (g *Generator) GenerateAnonymousID(ctx context.Context, consultantID, projectID string) string {
	return Format(g.expertiseCode(ctx, consultantID), g.scheme.Suffix(consultantID, projectID))
}

func (g *Generator) expertiseCode(ctx context.Context, consultantID string) string {
	if g.directory == nil {
		return expertise.DefaultCode
	}
	spec, err := g.directory.Specialization(ctx, consultantID)
	if err != nil {
		g.log.Debug("expertise lookup failed, using default code", logger.Fields{
			"consultant_id": consultantID,
			"error":         err.Error(),
		})
		return expertise.DefaultCode
	}
	return expertise.Code(spec)
}

// Format assembles an anonymous ID from its parts.
func Format(code, suffix string) string {
	return fmt.Sprintf("EXPERT-%s-%s", code, suffix)
}
