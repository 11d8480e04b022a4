/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: assembler.go
Description: Combines extracted entries and findings into a ParseResult.
*/

package logparse

// Success is false as soon as any entry is CRITICAL
func Success(logs []LogEntry) bool {
	for _, entry := range logs {
		if entry.Status == SeverityCritical {
			return false
		}
	}
	return true
}

// Assemble builds the result. Nil slices become empty so they encode as [].
func Assemble(logs []LogEntry, messages []Finding) ParseResult {
	if logs == nil {
		logs = []LogEntry{}
	}
	if messages == nil {
		messages = []Finding{}
	}
	return ParseResult{
		Success:  Success(logs),
		Logs:     logs,
		Messages: messages,
	}
}
