package config

import (
	"log"
	"os"
)

// InitLogging configures the standard logger
func InitLogging() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
}
