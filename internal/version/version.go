package version

import (
	"fmt"
	"strconv"
	"time"
)

// Version is the application version. Can be overridden at build time via:
//
//	go build -ldflags "-X castypos.com/posserver/internal/version.Version=1.2.3"
var Version = "1.0"

// Banner returns identifying information about the server.
func Banner() string {
	y := strconv.Itoa(time.Now().Year())
	copyright := "Copyright 2025-" + y + " Casty POS. All rights reserved."

	return fmt.Sprintf("%s\nposserver (v%s)\n%s\n", product(), Version, copyright)
}

func product() string {
	const s = `
                                                   
  _ __   ___  ___  ___  ___ _ ____   _____ _ __ 
 | '_ \ / _ \/ __|/ __|/ _ \ '__\ \ / / _ \ '__|
 | |_) | (_) \__ \\__ \  __/ |   \ V /  __/ |   
 | .__/ \___/|___/|___/\___|_|    \_/ \___|_|   
 |_|
`
	return s
}
