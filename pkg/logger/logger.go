package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"k8s.io/klog/v2"
)

// LogLevel 日志级别
type LogLevel int32

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var currentLevel atomic.Int32

func init() {
	currentLevel.Store(int32(INFO))
}

// ParseLevel 将配置中的级别字符串转换为 LogLevel，未知值按 INFO 处理
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Init 初始化日志系统
func Init(level string) {
	SetLevel(ParseLevel(level))

	// 配置 klog
	klog.InitFlags(nil)
	klog.SetOutput(os.Stdout)

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	Info("日志系统初始化完成，级别: %s", level)
}

// SetLevel 调整当前日志级别
func SetLevel(l LogLevel) {
	currentLevel.Store(int32(l))
}

// Enabled 判断指定级别是否输出
func Enabled(l LogLevel) bool {
	return LogLevel(currentLevel.Load()) <= l
}

// format 兼容两种调用方式：printf 风格，以及 "消息", "key", value 的键值风格
func format(msg string, args ...interface{}) string {
	if len(args) == 0 {
		return msg
	}
	if strings.Contains(msg, "%") {
		return fmt.Sprintf(msg, args...)
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	return b.String()
}

// Debug 调试日志
func Debug(msg string, args ...interface{}) {
	if Enabled(DEBUG) {
		message := "[DEBUG] " + format(msg, args...)
		_ = log.Output(2, message)
		klog.V(4).Info(message)
	}
}

// Info 信息日志
func Info(msg string, args ...interface{}) {
	if Enabled(INFO) {
		_ = log.Output(2, "[INFO] "+format(msg, args...))
	}
}

// Warn 警告日志
func Warn(msg string, args ...interface{}) {
	if Enabled(WARN) {
		message := "[WARN] " + format(msg, args...)
		_ = log.Output(2, message)
		klog.Warning(message)
	}
}

// Error 错误日志
func Error(msg string, args ...interface{}) {
	if Enabled(ERROR) {
		message := "[ERROR] " + format(msg, args...)
		_ = log.Output(2, message)
		klog.Error(message)
	}
}

// Fatal 致命错误日志
func Fatal(msg string, args ...interface{}) {
	message := "[FATAL] " + format(msg, args...)
	_ = log.Output(2, message)
	klog.Fatal(message)
}
