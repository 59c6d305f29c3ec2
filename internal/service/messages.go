package service

import (
	"errors"
	"fmt"

	"guia-turismo-go/internal/index"
	"guia-turismo-go/internal/pipeline"
)

// 面向用户的固定文案（葡萄牙语）。
const (
	MsgLocationNotFound = "Local não encontrado. Por favor, tente novamente."
	MsgNoInformation    = "Desculpe, não tenho informações suficientes para responder a essa pergunta no momento."
	MsgChatError        = "Desculpe, ocorreu um erro ao processar sua pergunta."
	MsgEmptyAnswer      = "Desculpe, não consegui gerar uma resposta adequada."
	MsgDescriptionError = "Desculpe, ocorreu um erro ao gerar a descrição turística."
)

// PlaceholderDescription 是没有可用上下文时的地点描述。
func PlaceholderDescription(location string) string {
	return fmt.Sprintf("Principais atrações turísticas de %s no Brasil. (Informações detalhadas não disponíveis)", location)
}

// ChatReply 把对话模式的结果映射为展示给用户的文本。
func ChatReply(o pipeline.Outcome) string {
	switch o.Status {
	case pipeline.StatusOK:
		return o.TextOr(MsgEmptyAnswer)
	case pipeline.StatusEmpty:
		if errors.Is(o.Err, index.ErrNotBuilt) {
			return MsgNoInformation
		}
		return MsgEmptyAnswer
	default:
		return MsgChatError
	}
}

// DescriptionReply 把描述模式的结果映射为展示给用户的文本。
func DescriptionReply(o pipeline.Outcome, location string) string {
	switch o.Status {
	case pipeline.StatusOK:
		return o.TextOr(PlaceholderDescription(location))
	case pipeline.StatusError:
		return MsgDescriptionError
	default:
		return PlaceholderDescription(location)
	}
}
