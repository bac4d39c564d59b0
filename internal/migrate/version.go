package migrate

import (
	"github.com/oldnordic/magellan-go/internal/errors"
	"github.com/oldnordic/magellan-go/internal/schema"
)

// MinSupportedSchemaVersion is the oldest magellan_schema_version
// internal/schema's migrations can carry forward (spec §6's "specific
// upgrade rules per version pair" are only defined from here on; anything
// older has no supported path and must be rebuilt).
const MinSupportedSchemaVersion = 4

// CheckSchemaUpgrade applies spec §6's migration-compatibility policy to a
// database internal/backend.OpenRelationalBackend already carried forward
// to schema.CurrentVersion: openedAt is the version it reports finding
// before that migration ran (0 for a brand-new database, which always
// passes — spec §6's "new/empty paths bypass preflight"). Versions older
// than MinSupportedSchemaVersion, or newer than this build understands,
// fail with a fatal SchemaMismatchError rather than silently trusting a
// migration internal/schema was never told how to perform.
func CheckSchemaUpgrade(openedAt int) error {
	if openedAt == 0 {
		return nil
	}
	if openedAt > schema.CurrentVersion {
		return &errors.SchemaMismatchError{Component: "magellan", Found: openedAt, Expected: schema.CurrentVersion}
	}
	if openedAt < MinSupportedSchemaVersion {
		return &errors.SchemaMismatchError{Component: "magellan", Found: openedAt, Expected: schema.CurrentVersion}
	}
	return nil
}
