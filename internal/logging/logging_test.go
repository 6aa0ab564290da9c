package logging

import (
	"bytes"
	"testing"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Setup(&buf, "debug", "json"))
	defer Setup(&bytes.Buffer{}, "info", "none")

	log.WithField("album_id", "a1").Debug("photo saved")
	assert.Contains(t, buf.String(), `"album_id":"a1"`)
	assert.Contains(t, buf.String(), `"message":"photo saved"`)
}

func TestSetup_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Setup(&buf, "warn", "text"))
	defer Setup(&bytes.Buffer{}, "info", "none")

	log.Info("ignored")
	assert.Empty(t, buf.String())
}

func TestSetup_RejectsUnknown(t *testing.T) {
	assert.Error(t, Setup(&bytes.Buffer{}, "loud", "text"))
	assert.Error(t, Setup(&bytes.Buffer{}, "info", "xml"))
}
