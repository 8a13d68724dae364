// Package logging configures the process-wide structured logger. The
// teacher logs through the standard library's "log" package
// (crawler/crawler.go); this module instead follows the rest of the
// retrieved crawler corpus (other_examples/manifests/rbroggi-web-crawler,
// EdgeComet-engine, CorentinB-Zeno all depend on sirupsen/logrus) and logs
// through logrus everywhere, including the level/format this package sets
// up once at startup.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Configure installs a text formatter with full timestamps and the
// requested level as the process-wide logrus default, called once from
// the CLI's root command before any subcommand runs.
func Configure(verbose bool) {
	level := logrus.InfoLevel
	if verbose {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}
