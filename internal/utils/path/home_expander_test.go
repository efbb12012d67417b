package pathutils_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/temirov/layeraudit/internal/utils/path"
)

const (
	testHomeDirectoryConstant = "/home/auditor"
	testDataRootConstant      = "/srv/layeraudit"
)

func TestHomeExpanderExpand(testInstance *testing.T) {
	environment := map[string]string{"DATA_ROOT": testDataRootConstant}
	lookup := func(name string) (string, bool) {
		value, found := environment[name]
		return value, found
	}
	homeProvider := func() (string, error) { return testHomeDirectoryConstant, nil }

	testCases := []struct {
		name         string
		inputPath    string
		expectedPath string
	}{
		{name: "empty", inputPath: "", expectedPath: ""},
		{name: "relative_unchanged", inputPath: "logs", expectedPath: "logs"},
		{name: "tilde_only", inputPath: "~", expectedPath: testHomeDirectoryConstant},
		{name: "tilde_prefix", inputPath: "~/audit/logs", expectedPath: filepath.Join(testHomeDirectoryConstant, "audit/logs")},
		{name: "other_user_unchanged", inputPath: "~operator/logs", expectedPath: "~operator/logs"},
		{name: "environment_variable", inputPath: "$DATA_ROOT/exports", expectedPath: testDataRootConstant + "/exports"},
		{name: "braced_environment_variable", inputPath: "${DATA_ROOT}/audit.sqlite", expectedPath: testDataRootConstant + "/audit.sqlite"},
		{name: "unknown_variable", inputPath: "$MISSING/exports", expectedPath: "/exports"},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTestInstance *testing.T) {
			expander := pathutils.NewHomeExpanderWithProvider(homeProvider, lookup)
			require.Equal(subTestInstance, testCase.expectedPath, expander.Expand(testCase.inputPath))
		})
	}
}

func TestHomeExpanderKeepsTildeWhenHomeUnavailable(testInstance *testing.T) {
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return "", errors.New("no home")
	}, nil)
	require.Equal(testInstance, "~/logs", expander.Expand("~/logs"))

	var nilExpander *pathutils.HomeExpander
	require.Equal(testInstance, "~/logs", nilExpander.Expand("~/logs"))
}
