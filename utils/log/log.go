package log

import (
	"fmt"
	stdlog "log"
	"os"
	"strings"

	"github.com/logdna/logdna-go/logger"

	"github.com/hoshi-social/feedstream/utils/flag"
)

// global accessible logger
var (
	LogV2 *Logger
)

// This init function is only for testing cases, where the entry point is not
// main function. Unit test will fail with nil pointer dereference if we don't
// init here.
func init() {
	initLogger()
}

// Logger forwards to LogDNA when an ingestion key is configured and falls
// back to stdout otherwise, so tests and dev never need network.
type Logger struct {
	dna *logger.Logger
}

func (l *Logger) Info(msg string) {
	if l.dna != nil {
		l.dna.Info(msg)
		return
	}
	stdlog.Println("[INFO]", msg)
}

func (l *Logger) Debug(msg string) {
	if l.dna != nil {
		l.dna.Debug(msg)
		return
	}
	stdlog.Println("[DEBUG]", msg)
}

func (l *Logger) Error(msg string) {
	if l.dna != nil {
		l.dna.Error(msg)
		return
	}
	stdlog.Println("[ERROR]", msg)
}

func (l *Logger) Infof(params ...interface{}) {
	l.Info(joinParams(params))
}

func (l *Logger) Debugf(params ...interface{}) {
	l.Debug(joinParams(params))
}

func (l *Logger) Errorf(params ...interface{}) {
	l.Error(joinParams(params))
}

func joinParams(params []interface{}) string {
	strs := make([]string, len(params))
	for i, param := range params {
		strs[i] = fmt.Sprint(param)
	}
	return strings.Join(strs, ", ")
}

func initLogger() {
	key := os.Getenv("LOGDNA_KEY")
	if len(key) == 0 {
		LogV2 = &Logger{}
		return
	}

	env := os.Getenv("FEEDSTREAM_ENV")
	if len(env) == 0 {
		env = "unknown"
	}
	options := logger.Options{
		Level:    "debug",
		Hostname: "feedstream-" + env,
		App:      strings.ReplaceAll(*flag.ServiceName, "_", "-"),
	}
	dna, err := logger.NewLogger(options, key)
	if err != nil {
		stdlog.Println("fail to initialize logdna, falling back to stdout:", err)
		LogV2 = &Logger{}
		return
	}
	LogV2 = &Logger{dna: dna}
}
