package logger

import "go.uber.org/zap"

// New returns the production logger shared by all pipeline components.
func New() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return l
}
