package utils

import (
	"io"
	"log"
	"os"
)

// LoggerConfig определяет конфигурацию для логгера
type LoggerConfig struct {
	// Префикс каждой строки
	Prefix string
	// Выходной поток (os.Stdout, файл и т.д.)
	Output io.Writer
}

// InitLogger инициализирует и возвращает логгер
func InitLogger(config ...LoggerConfig) *log.Logger {
	var cfg LoggerConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "[Learning Platform] "
	}

	return log.New(cfg.Output, cfg.Prefix, log.LstdFlags|log.Lshortfile|log.LUTC)
}
