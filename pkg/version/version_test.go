package version

import (
	"encoding/json"
	"regexp"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion_IsNotEmpty(t *testing.T) {
	assert.NotEmpty(t, Version, "Version should not be empty")
}

func TestVersion_FollowsSemverOrDev(t *testing.T) {
	if Version == "dev" {
		t.Log("Version is 'dev' (development build without ldflags)")
		return
	}
	semver := regexp.MustCompile(`^\d+\.\d+\.\d+(-[\w.]+)?$`)
	assert.True(t, semver.MatchString(Version), "Version %q should be semver", Version)
}

func TestString_ContainsVersionAndGo(t *testing.T) {
	s := String()
	assert.Contains(t, s, "pensieve")
	assert.Contains(t, s, Version)
	assert.Contains(t, s, GoVersion)
}

func TestGetInfo_RoundTripsAsJSON(t *testing.T) {
	info := GetInfo()
	assert.Equal(t, runtime.GOOS, info.OS)
	assert.Equal(t, runtime.GOARCH, info.Arch)

	data, err := json.Marshal(info)
	require.NoError(t, err)

	var decoded BuildInfo
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, info, decoded)
}
