/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: conditions.go
Description: Recognized short-circuit conditions. Some tool outputs mean the run never
reached the analysis stage (no device, unauthorized device, missing dumpstate). They are
reported as dedicated errors with a localized message instead of log lines.
*/

package logparse

import (
	"strings"

	"github.com/kleascm/fvm/pkg/apperr"
)

// Condition maps a literal substring of the output to an error code
type Condition struct {
	Needle string
	Code   apperr.Code
	Detail string
}

// Conditions are checked in order; the first hit wins.
// "device unautorized" is the spelling that shows up in practice and is kept verbatim.
var Conditions = []Condition{
	{Needle: "no devices/emulators found", Code: apperr.DeviceNotFound, Detail: "O ADB não encontrou nenhum dispositivo"},
	{Needle: "device unautorized", Code: apperr.DeviceUnauthorized, Detail: "Dispositivo ADB não autorizado. Verifique a tela do dispositivo para um prompt de confirmação."},
	{Needle: "device unauthorized", Code: apperr.DeviceUnauthorized, Detail: "Dispositivo ADB não autorizado. Verifique a tela do dispositivo para um prompt de confirmação."},
	{Needle: "No device found.", Code: apperr.DeviceNotFound, Detail: "Nenhum dispositivo encontrado. Verifique se ele está conectado e desbloqueado."},
	{Needle: "Unable to find dumpstate file.", Code: apperr.MissingArtifact, Detail: "Não foi possível encontrar o arquivo dumpstate no bugreport."},
}

// DetectCondition scans the whole normalized text for a short-circuit condition.
// It returns nil when none applies.
func DetectCondition(normalized string) error {
	for _, c := range Conditions {
		idx := strings.Index(normalized, c.Needle)
		if idx < 0 {
			continue
		}
		return apperr.New(c.Code, map[string]interface{}{
			"needle":  c.Needle,
			"snippet": lineAround(normalized, idx),
		}).WithDetail(c.Detail)
	}
	return nil
}

func lineAround(text string, idx int) string {
	start := strings.LastIndexByte(text[:idx], '\n') + 1
	end := strings.IndexByte(text[idx:], '\n')
	if end < 0 {
		return text[start:]
	}
	return text[start : idx+end]
}
