package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timeLayout = "2006/01/02 15:04:05"

// New builds the process logger. Development mode logs colored console
// lines at debug level; production logs JSON at info level.
func New(development bool) (*zap.Logger, error) {
	var config zap.Config
	if development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	return config.Build()
}

// Nop is used by tests and by components built without a logger.
func Nop() *zap.Logger {
	return zap.NewNop()
}

// OrNop guards optional logger parameters.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func TaskID(id string) zap.Field     { return zap.String("task_id", id) }
func BidID(id string) zap.Field      { return zap.String("bid_id", id) }
func ContractID(id string) zap.Field { return zap.String("contract_id", id) }
func UserID(id string) zap.Field     { return zap.String("user_id", id) }
