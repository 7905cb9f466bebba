package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypes_ListText(t *testing.T) {
	out, _, err := execute(t, "types", typedefsDir)
	require.NoError(t, err)

	assert.Contains(t, out, "8 type(s)")
	assert.Contains(t, out, "DataFile")
	assert.Contains(t, out, "< DataSet")
	assert.Contains(t, out, "relationship")
	assert.Contains(t, out, "✓ No lint findings")
}

func TestTypes_ListJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "types", typedefsDir)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TypesResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Types, 8)
	assert.Empty(t, resp.Data.Lint)

	byName := make(map[string]TypeSummary)
	for _, ts := range resp.Data.Types {
		byName[ts.Name] = ts
	}
	assert.Equal(t, TypeSummary{Name: "Process", Category: "entity", Supertype: "Asset", Attributes: 2}, byName["Process"])
	assert.Equal(t, "classification", byName["Confidentiality"].Category)
	assert.Equal(t, "Asset", resp.Data.Types[0].Name, "types are listed by name")
}

func TestTypes_DescribeResolvesInheritedAttributes(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "types", typedefsDir, "--type", "DataFile")
	require.NoError(t, err)

	var resp struct {
		Data TypeDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	d := resp.Data
	assert.Equal(t, "10752b4a-4b5d-4519-9eae-fdd6d162122f", d.GUID)
	assert.Equal(t, []string{"Referenceable", "Asset", "DataSet"}, d.Ancestors)
	assert.Empty(t, d.Subtypes)

	names := make([]string, len(d.Attributes))
	for i, a := range d.Attributes {
		names[i] = a.Name
	}
	assert.Equal(t, []string{
		"qualifiedName", "additionalProperties",
		"displayName", "description",
		"formula",
		"fileType", "sizeBytes", "compressed",
	}, names)
	assert.Equal(t, AttributeView{Name: "qualifiedName", Type: "string", Cardinality: "at-least-one-unordered", Unique: true}, d.Attributes[0])
	assert.Equal(t, "map", d.Attributes[1].Type)
	assert.Equal(t, "long", d.Attributes[6].Type)
}

func TestTypes_MostSpecificKnownSubtype(t *testing.T) {
	tests := []struct {
		name  string
		known string
		want  string
	}{
		{"nearest layer wins", "DataFile,Process", "Process"},
		{"name order within a layer", "Database,DataFile", "DataFile"},
		{"candidate itself", "Asset,DataFile", "Asset"},
		{"none known", "Confidentiality", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "--format", "json", "types", typedefsDir, "--type", "Asset", "--known", tt.known)
			require.NoError(t, err)

			var resp struct {
				Data TypeDetail `json:"data"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, tt.want, resp.Data.Resolved)
		})
	}
}

func TestTypes_DescribeText(t *testing.T) {
	out, _, err := execute(t, "types", typedefsDir, "--type", "Asset", "--known", "Database")
	require.NoError(t, err)

	assert.Contains(t, out, "Asset (entity)")
	assert.Contains(t, out, "ancestors: Referenceable")
	assert.Contains(t, out, "subtypes:  DataSet, Process")
	assert.Contains(t, out, "at-least-one-unordered, unique")
	assert.Contains(t, out, "most specific known subtype of Asset in [Database]: Database")
}

func TestTypes_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode string
		wantText string
	}{
		{
			name:     "missing directory",
			args:     []string{"types", "/nonexistent/typedefs"},
			wantCode: ErrCodeNotFound,
			wantText: "not found",
		},
		{
			name:     "no CUE files",
			args:     []string{"types", t.TempDir()},
			wantCode: ErrCodeNoFiles,
			wantText: "no CUE files",
		},
		{
			name:     "bad category",
			args:     []string{"types", filepath.Join("testdata", "broken")},
			wantCode: ErrCodeTypedef,
			wantText: "typedef.Widget",
		},
		{
			name:     "supertype cycle",
			args:     []string{"types", filepath.Join("testdata", "cycle")},
			wantCode: ErrCodeLattice,
			wantText: "cycle",
		},
		{
			name:     "unknown type",
			args:     []string{"types", typedefsDir, "--type", "Spreadsheet"},
			wantCode: ErrCodeUnknownType,
			wantText: `"Spreadsheet" not found`,
		},
		{
			name:     "known without type",
			args:     []string{"types", typedefsDir, "--known", "DataFile"},
			wantCode: ErrCodeGeneric,
			wantText: "--known requires --type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantCode)
			assert.Contains(t, out, tt.wantText)
		})
	}
}

func TestLoadTypes_CollectAll(t *testing.T) {
	result, errs := LoadTypes(typedefsDir, LoadModeCollectAll)
	require.Empty(t, errs)
	assert.Equal(t, 8, result.Types.Len())
	assert.Equal(t, 1, result.FileCount)
	assert.Empty(t, result.Lint)
}
