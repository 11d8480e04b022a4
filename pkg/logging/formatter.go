/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: formatter.go
Description: Console formatter for FVM. One line per entry: timestamp, level, optional
component tag and caller, message, then fields sorted by key.
*/

package logging

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ComponentField is lifted out of the field list and shown as a tag
const ComponentField = "component"

// CustomFormatter provides compact, colored output
type CustomFormatter struct {
	Timestamp bool
	Caller    bool
	Colors    bool
}

// Format implements logrus.Formatter
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var out strings.Builder

	if f.Timestamp {
		f.write(&out, 36, entry.Time.Format("2006-01-02 15:04:05.000"))
		out.WriteString(" ")
	}

	f.write(&out, f.levelColor(entry.Level), fmt.Sprintf("%-5s", strings.ToUpper(entry.Level.String())))
	out.WriteString(" ")

	if component, ok := entry.Data[ComponentField]; ok {
		f.write(&out, 35, fmt.Sprintf("[%v]", component))
		out.WriteString(" ")
	}

	if f.Caller && entry.HasCaller() {
		f.write(&out, 33, fmt.Sprintf("[%s:%d]", entry.Caller.File, entry.Caller.Line))
		out.WriteString(" ")
	}

	out.WriteString(entry.Message)

	if fields := f.formatFields(entry.Data); fields != "" {
		out.WriteString(" ")
		out.WriteString(fields)
	}

	out.WriteString("\n")
	return []byte(out.String()), nil
}

func (f *CustomFormatter) write(out *strings.Builder, color int, s string) {
	if f.Colors {
		fmt.Fprintf(out, "\033[%dm%s\033[0m", color, s)
		return
	}
	out.WriteString(s)
}

func (f *CustomFormatter) levelColor(level logrus.Level) int {
	switch level {
	case logrus.InfoLevel:
		return 32
	case logrus.WarnLevel:
		return 33
	case logrus.ErrorLevel:
		return 31
	case logrus.FatalLevel, logrus.PanicLevel:
		return 35
	default:
		return 37
	}
}

func (f *CustomFormatter) formatFields(fields logrus.Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == ComponentField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := formatValue(fields[k])
		if f.Colors {
			parts = append(parts, fmt.Sprintf("\033[34m%s\033[0m=%s", k, v))
		} else {
			parts = append(parts, fmt.Sprintf("%s=%s", k, v))
		}
	}
	return strings.Join(parts, " ")
}

func formatValue(value interface{}) string {
	switch v := value.(type) {
	case time.Duration:
		return v.String()
	case time.Time:
		return v.Format("15:04:05.000")
	case string:
		if len(v) > 120 {
			v = v[:120] + "..."
		}
		if strings.ContainsAny(v, " \n\t") {
			return fmt.Sprintf("%q", v)
		}
		return v
	case error:
		return fmt.Sprintf("%q", v.Error())
	default:
		return fmt.Sprintf("%v", v)
	}
}
