package version

import (
	"fmt"
	"runtime"
)

// Заполняются через -ldflags при сборке релиза.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает версию, коммит и дату сборки.
func Info() (v, c, d string) { return version, commit, date }

// String форматирует сведения о сборке для стартового лога.
func String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s go=%s", version, commit, date, runtime.Version())
}
