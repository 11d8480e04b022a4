/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: codes.go
Description: Closed error taxonomy for the FVM API. Every code carries a numeric
identifier, a localized client message, an HTTP status and an internal message used
in logs. The table is versioned and never extended at runtime.
*/

package apperr

import (
	"net/http"
	"sort"
)

// TaxonomyVersion is bumped whenever a code is added, removed or renumbered.
const TaxonomyVersion = "1.1.0"

// Code identifies an error variant
type Code string

const (
	InternalServerError Code = "INTERNAL_SERVER_ERROR"

	MVTAndroidError      Code = "MVT_ANDROID_ERROR"
	CheckADBError        Code = "MVT_ANDROID_CHECKADB_ERROR"
	CheckADBNotFound     Code = "MVT_ANDROID_CHECKADB_NOT_FOUND"
	DeviceNotFound       Code = "DEVICE_NOT_FOUND"
	DeviceUnauthorized   Code = "DEVICE_UNAUTHORIZED"
	MissingArtifact      Code = "MISSING_ARTIFACT"
	APKError             Code = "MVT_ANDROID_APK_ERROR"
	IOCUpdateFailed      Code = "IOC_UPDATE_FAILED"
	ConfigError          Code = "CONFIG_ERROR"
	ConfigNotFound       Code = "CONFIG_NOT_FOUND"
	InvalidInput         Code = "INVALID_INPUT"
	MissingParameter     Code = "MISSING_PARAMETER"
	ParameterInvalid     Code = "PARAMETER_INVALID"
	MissingValue         Code = "MISSING_VALUE"
	ConfigFileNotFound   Code = "CONFIG_FILE_NOT_FOUND"
	PermissionDenied     Code = "PERMISSION_DENIED"
	IOError              Code = "IO_ERROR"
	EncodingError        Code = "ENCODING_ERROR"
	UnsupportedMediaType Code = "UNSUPPORTED_MEDIA_TYPE"
	ScanNotFound         Code = "SCAN_NOT_FOUND"

	CommandError             Code = "COMMAND_ERROR"
	CommandNotFound          Code = "COMMAND_NOT_FOUND"
	CommandPermissionDenied  Code = "COMMAND_PERMISSION_DENIED"
	CommandTimeout           Code = "COMMAND_TIMEOUT"
	CommandExecutionFailed   Code = "COMMAND_EXECUTION_FAILED"
	CommandDependencyMissing Code = "COMMAND_DEPENDENCY_MISSING"

	ParserError       Code = "PARSER_ERROR"
	ResourceMissing   Code = "PATTERN_FILE_NOT_FOUND"
	ResourceMalformed Code = "INVALID_PATTERN_FORMAT"
	NoPatternMatch    Code = "NO_PATTERN_MATCH"
	InvalidRegex      Code = "INVALID_REGEX_PATTERN"
	UnparseableOutput Code = "UNPARSEABLE_OUTPUT"
)

// Info is the metadata attached to a Code
type Info struct {
	Number          int
	ClientMessage   string
	Status          int
	InternalMessage string
}

var table = map[Code]Info{
	InternalServerError: {1000, "Ocorreu um erro interno no servidor.", http.StatusInternalServerError, "Unhandled exception no core da aplicação."},

	MVTAndroidError:    {2000, "Não foi possível executar o MVT-Android.", http.StatusServiceUnavailable, "Falha ao executar o MVT-Android."},
	CheckADBError:      {2100, "Não foi possível verificar o dispositivo.", http.StatusInternalServerError, "Falha ao executar mvt-android check-adb."},
	CheckADBNotFound:   {2101, "Não foi possível encontrar o dispositivo.", http.StatusInternalServerError, "Dispositivo não encontrado."},
	DeviceNotFound:     {2102, "O ADB não encontrou nenhum dispositivo.", http.StatusNotFound, "Nenhum dispositivo conectado foi reportado pela ferramenta."},
	DeviceUnauthorized: {2103, "Dispositivo ADB não autorizado. Verifique a tela do dispositivo para um prompt de confirmação.", http.StatusForbidden, "Dispositivo conectado sem autorização de depuração."},
	MissingArtifact:    {2104, "Arquivo necessário para a análise não foi encontrado.", http.StatusUnprocessableEntity, "Artefato de entrada ausente (dumpstate)."},
	APKError:           {2200, "Erro ao verificar o arquivo APK.", http.StatusInternalServerError, "Erro ao rodar mvt-android check-apk."},
	IOCUpdateFailed:    {2300, "Não foi possível atualizar IOCs.", http.StatusServiceUnavailable, "Falha ao executar mvt-android download-iocs."},

	ConfigError:    {3000, "Não foi possível definir está configuração", http.StatusServiceUnavailable, "Falha ao definir a configuração"},
	ConfigNotFound: {3001, "Configuração não encontrada.", http.StatusNotFound, "Arquivo de configuração ausente ou corrompido."},

	InvalidInput:         {4000, "Dados de entrada inválidos.", http.StatusUnprocessableEntity, "Validação de payload falhou."},
	MissingParameter:     {4001, "Precisa fornecer parametros para essa requisição.", http.StatusBadRequest, "Está faltando parametro na requisição."},
	ParameterInvalid:     {4002, "Precisa fornecer o parametros correto para esta requisição.", http.StatusBadRequest, "O parametro utilizado é invalido."},
	MissingValue:         {4003, "O valor do parametro está errado.", http.StatusBadRequest, "O valor do parametro está vazio ou é inválido."},
	ConfigFileNotFound:   {4004, "Não foi possível definir está configuração.", http.StatusInternalServerError, "O arquivo não foi encontrado."},
	PermissionDenied:     {4005, "Não foi possível definir está configuração.", http.StatusInternalServerError, "Permissão negada para editar o arquivo"},
	IOError:              {4006, "Não foi possível definir está configuração.", http.StatusInternalServerError, "Erro de IO para modificar o arquivo."},
	EncodingError:        {4007, "Não foi possível definir está configuração.", http.StatusInternalServerError, "Erro na codificação do arquivo"},
	UnsupportedMediaType: {4008, "Content-Type não aceito! Envie os dados como application/json.", http.StatusUnsupportedMediaType, "Requisição sem corpo JSON."},
	ScanNotFound:         {4009, "Análise não encontrada.", http.StatusNotFound, "Identificador de análise inexistente no histórico."},

	CommandError:             {5000, "Não foi possível executar este comando.", http.StatusInternalServerError, "Falha ao executar o comando"},
	CommandNotFound:          {5001, "Comando não encontrado.", http.StatusNotFound, "O comando solicitado não foi localizado no sistema."},
	CommandPermissionDenied:  {5002, "Permissão negada para executar o comando.", http.StatusForbidden, "O usuário ou processo não tem permissão para executar o comando."},
	CommandTimeout:           {5003, "A execução do comando excedeu o tempo limite.", http.StatusRequestTimeout, "Timeout durante execução do comando."},
	CommandExecutionFailed:   {5004, "O comando executou com erro.", http.StatusInternalServerError, "O comando foi executado, mas retornou código diferente de 0."},
	CommandDependencyMissing: {5005, "Dependência ausente para execução do comando.", http.StatusInternalServerError, "Um dos binários necessários para o comando está ausente."},

	ParserError:       {6000, "Erro ao obter informações na analise.", http.StatusInternalServerError, "Não é possível fazer o parser da saída."},
	ResourceMissing:   {6001, "Não é possível criar resposta para a analise.", http.StatusInternalServerError, "Catálogo de padrões não encontrado."},
	ResourceMalformed: {6002, "Houve uma falha ao formar a resposta da analise.", http.StatusInternalServerError, "Formato do padrão é invalido."},
	NoPatternMatch:    {6003, "Resposta inesperado na analise.", http.StatusInternalServerError, "Nenhum padrão do catálogo casou com a saída."},
	InvalidRegex:      {6004, "Houve uma falha ao formar a resposta da analise.", http.StatusInternalServerError, "Regex invalido no catálogo"},
	UnparseableOutput: {6005, "Não foi possível interpretar a saída da análise.", http.StatusBadGateway, "Nenhuma linha com severidade encontrada na saída."},
}

// Lookup returns the metadata for a code
func Lookup(c Code) (Info, bool) {
	info, ok := table[c]
	return info, ok
}

// Info returns the metadata for c, falling back to INTERNAL_SERVER_ERROR
func (c Code) Info() Info {
	if info, ok := table[c]; ok {
		return info
	}
	return table[InternalServerError]
}

// Valid reports whether c belongs to the taxonomy
func (c Code) Valid() bool {
	_, ok := table[c]
	return ok
}

// Codes lists every code ordered by number
func Codes() []Code {
	codes := make([]Code, 0, len(table))
	for c := range table {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool {
		return table[codes[i]].Number < table[codes[j]].Number
	})
	return codes
}
