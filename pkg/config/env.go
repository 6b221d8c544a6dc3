package config

import "strings"

// storage.path -> TILESINK_STORAGE_PATH
var envReplacer = strings.NewReplacer(".", "_")
