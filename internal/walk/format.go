package filerec

import (
	"path/filepath"
	"strconv"
	"strings"
)

// FormatItem replaces placeholders in template with values from item:
//
//	{}      absolute path
//	{key}   path relative to the root
//	{base}  base name
//	{dir}   directory of the absolute path
//
// Each placeholder also has a quoted form: {""}, {"key"}, {"base"}, {"dir"}.
func FormatItem(template string, item Item) string {
	if !strings.Contains(template, "{") {
		return template
	}
	base := filepath.Base(item.Path)
	dir := filepath.Dir(item.Path)

	r := strings.NewReplacer(
		`{""}`, strconv.Quote(item.Path),
		`{"key"}`, strconv.Quote(item.Key),
		`{"base"}`, strconv.Quote(base),
		`{"dir"}`, strconv.Quote(dir),
		"{}", item.Path,
		"{key}", item.Key,
		"{base}", base,
		"{dir}", dir,
	)
	return r.Replace(template)
}
