package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visamatch/internal/eligibility"
)

func intPtr(v int) *int { return &v }

func TestKey(t *testing.T) {
	job := eligibility.JobConstraints{
		AllowedVisaCodes: []eligibility.VisaCode{"E-9"},
		BoardType:        eligibility.BoardPartTime,
		WeeklyHours:      intPtr(20),
	}
	verified := eligibility.VisaProfile{Code: "E-9", Attributes: &eligibility.VisaAttributes{MaxWeeklyHours: intPtr(25)}}

	key, err := Key("1.0.0+abc", verified, job)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "elig:1.0.0+abc:"))
	assert.Equal(t, "1.0.0+abc", versionOf(key))

	t.Run("stable", func(t *testing.T) {
		again, err := Key("1.0.0+abc", verified, job)
		require.NoError(t, err)
		assert.Equal(t, key, again)
	})

	t.Run("equivalent jobs share a key", func(t *testing.T) {
		loose := job
		loose.AllowedVisaCodes = []eligibility.VisaCode{"e-9", "E-9"}
		loose.BoardType = "part_time"
		other, err := Key("1.0.0+abc", verified, loose)
		require.NoError(t, err)
		assert.Equal(t, key, other)
	})

	t.Run("attributes change the key", func(t *testing.T) {
		other, err := Key("1.0.0+abc", eligibility.SynthesizedProfile("E-9"), job)
		require.NoError(t, err)
		assert.NotEqual(t, key, other)
	})

	t.Run("version changes the key", func(t *testing.T) {
		other, err := Key("1.0.1+def", verified, job)
		require.NoError(t, err)
		assert.NotEqual(t, key, other)
	})
}

func TestVersionOfForeignKey(t *testing.T) {
	assert.Empty(t, versionOf("other:1:2"))
	assert.Empty(t, versionOf("elig:nodigest"))
}
