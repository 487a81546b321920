package tmdl

import (
	"os"
	"path/filepath"
)

var defaultPalette = []string{
	"#118DFF", "#12239E", "#E66C37", "#6B007B",
	"#E044A7", "#744EC2", "#D9B300", "#D64550",
	"#197278", "#1AAB40", "#15C6F4", "#4092FF",
}

// WriteTheme emits the default report theme under the Report folder's
// shared resources and returns the theme file path.
func WriteTheme(dir, name string) (string, error) {
	safe := SanitizeName(name)
	if safe == "" {
		safe = "Report"
	}
	themesDir := filepath.Join(dir, safe+".Report", "definition",
		"StaticResources", "SharedResources", "BaseThemes")
	if err := os.MkdirAll(themesDir, 0o755); err != nil {
		return "", err
	}

	font := "Segoe UI"
	theme := map[string]any{
		"name":        safe + "Theme",
		"dataColors":  defaultPalette,
		"background":  "#FFFFFF",
		"foreground":  "#252423",
		"tableAccent": defaultPalette[0],
		"textClasses": map[string]any{
			"callout": map[string]any{"fontSize": 45, "fontFace": font, "color": defaultPalette[0]},
			"title":   map[string]any{"fontSize": 12, "fontFace": font, "color": "#252423"},
			"header":  map[string]any{"fontSize": 12, "fontFace": font, "color": "#252423"},
			"label":   map[string]any{"fontSize": 10, "fontFace": font, "color": "#666666"},
		},
		"visualStyles": map[string]any{
			"*": map[string]any{
				"*": map[string]any{
					"*": []any{map[string]any{"wordWrap": true, "fontFamily": font}},
				},
			},
		},
	}

	path := filepath.Join(themesDir, safe+"Theme.json")
	if err := writeJSON(path, theme); err != nil {
		return "", err
	}
	return path, nil
}
