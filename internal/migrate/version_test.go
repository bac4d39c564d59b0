package migrate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oldnordic/magellan-go/internal/errors"
)

func TestCheckSchemaUpgradeAllowsFreshAndCurrentDatabases(t *testing.T) {
	require.NoError(t, CheckSchemaUpgrade(0))
	require.NoError(t, CheckSchemaUpgrade(4))
	require.NoError(t, CheckSchemaUpgrade(5))
	require.NoError(t, CheckSchemaUpgrade(6))
}

func TestCheckSchemaUpgradeRejectsUnsupportedVersions(t *testing.T) {
	err := CheckSchemaUpgrade(2)
	require.Error(t, err)
	var mismatch *errors.SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, 2, mismatch.Found)

	err = CheckSchemaUpgrade(7)
	require.Error(t, err)
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, 7, mismatch.Found)
}
