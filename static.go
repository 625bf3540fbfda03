package main

import _ "embed"

// indexHTML is the embedded renderer page.
//go:embed web/index.html
var indexHTML string
