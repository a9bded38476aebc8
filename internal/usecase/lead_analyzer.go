package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/xavierca1/ligue-inference/internal/entity"
)

// Rubrica de qualificação. Mantida em espanhol porque é o idioma de
// operação dos clientes e o texto é interpretado pelo modelo, não pelo código.
const analyzerSystemPrompt = `Eres un experto en calificación de leads inmobiliarios. Tu tarea es analizar la conversación proporcionada y asignar un puntaje (score) para 5 criterios específicos, además de extraer datos de perfil cuando existan.

CRITERIOS DE CALIFICACIÓN:

1. ENGAGEMENT (Rango: -20 a 30):
   - Mide el interés del usuario. (30 = Pide cita o deja datos claros, 10-20 = Hace preguntas de negocio, -20 = Insulta o pide que lo borren).
2. FINANCE (Rango: -10 a 30):
   - Capacidad de pago detectada. (30 = Cash/Contado, 20-25 = Crédito pre-aprobado/Ingresos altos, -10 = Dice no tener dinero).
3. TIMELINE (Rango: 0 a 20):
   - Plazo de compra. (20 = Inmediato/Este mes, 15 = 1-3 meses, 5 = Solo viendo/Largo plazo).
4. MATCH (Rango: 0 a 15):
   - Ajuste al producto. (15 = Busca exactamente lo que el contexto ofrece, 7-9 = Interés general, 0 = Busca algo totalmente distinto).
5. INFO (Rango: -3 a 5):
   - Calidad del perfil. (5 = Nombre, Celular y Email detectados, 1-3 = Faltan datos críticos, -3 = Datos falsos/Evasivo).

EXTRACCIÓN DE PERFIL:
- Extrae SOLO datos mencionados explícitamente en la conversación: nombre completo, email, teléfono, ingreso declarado, deudas actuales, moneda y forma de contacto preferida.
- Si un dato no aparece, devuelve null para ese campo. NUNCA inventes valores.
- extracted_currency debe ser uno de los códigos listados abajo; si la moneda mencionada no está en la lista, devuelve null.
- extracted_contact_way_id debe ser uno de los ids listados abajo; si no hay coincidencia clara, devuelve null.

INSTRUCCIONES:
- Analiza la INTENCIÓN del usuario, independientemente de si el Asistente pudo resolver la duda o no.
- Devuelve un JSON con los 5 scores, un campo 'reasoning' corto en español y los campos extraídos.
- Si no hay información suficiente para un criterio, usa el valor neutro (0).`

// scoringPayload é o shape do JSON que o modelo devolve. Campos extraídos
// são ponteiros de propósito: ausência precisa ser distinguível de zero.
type scoringPayload struct {
	ScoreEngagement       int      `json:"score_engagement"`
	ScoreFinance          int      `json:"score_finance"`
	ScoreTimeline         int      `json:"score_timeline"`
	ScoreMatch            int      `json:"score_match"`
	ScoreInfo             int      `json:"score_info"`
	Reasoning             string   `json:"reasoning"`
	ExtractedName         *string  `json:"extracted_name"`
	ExtractedEmail        *string  `json:"extracted_email"`
	ExtractedPhone        *string  `json:"extracted_phone"`
	ExtractedIncome       *float64 `json:"extracted_income"`
	ExtractedDebts        *float64 `json:"extracted_debts"`
	ExtractedCurrency     *string  `json:"extracted_currency"`
	ExtractedContactWayID *int     `json:"extracted_contact_way_id"`
}

type LeadAnalyzer struct {
	LLM StructuredGenerator
}

func NewLeadAnalyzer(llm StructuredGenerator) *LeadAnalyzer {
	return &LeadAnalyzer{LLM: llm}
}

// Analyze nunca devolve erro: qualquer falha de geração, parse ou
// validação vira o resultado neutro de fallback. Esse caminho roda em
// background e não pode vazar pro caller síncrono.
func (a *LeadAnalyzer) Analyze(ctx context.Context, history []entity.Message, catalogs entity.Catalog) entity.ScoringResult {
	transcript := renderTranscript(history)

	userPrompt := fmt.Sprintf(
		"MONEDAS VÁLIDAS: %s\nFORMAS DE CONTACTO VÁLIDAS:\n%s\nAnaliza la siguiente conversación y devuelve el scoring en formato JSON:\n\n%s",
		strings.Join(catalogs.Currencies, ", "),
		renderContactWays(catalogs.ContactWays),
		transcript,
	)

	raw, err := a.LLM.GenerateStructured(ctx, analyzerSystemPrompt, userPrompt)
	if err != nil {
		log.Printf("❌ [ANALYZER] Geração estruturada falhou: %v", err)
		return entity.NeutralScoringResult()
	}

	var payload scoringPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Printf("❌ [ANALYZER] JSON inválido do modelo: %v", err)
		return entity.NeutralScoringResult()
	}

	result := entity.ScoringResult{
		ScoreEngagement:       payload.ScoreEngagement,
		ScoreFinance:          payload.ScoreFinance,
		ScoreTimeline:         payload.ScoreTimeline,
		ScoreMatch:            payload.ScoreMatch,
		ScoreInfo:             payload.ScoreInfo,
		Reasoning:             payload.Reasoning,
		ExtractedName:         normalizeString(payload.ExtractedName),
		ExtractedEmail:        normalizeString(payload.ExtractedEmail),
		ExtractedPhone:        normalizeString(payload.ExtractedPhone),
		ExtractedIncome:       payload.ExtractedIncome,
		ExtractedDebts:        payload.ExtractedDebts,
		ExtractedCurrency:     normalizeString(payload.ExtractedCurrency),
		ExtractedContactWayID: payload.ExtractedContactWayID,
	}

	if err := result.Validate(); err != nil {
		log.Printf("❌ [ANALYZER] Score fora da faixa, usando fallback neutro: %v", err)
		return entity.NeutralScoringResult()
	}

	// Extrações categóricas só passam se existirem no catálogo. Menção não
	// mapeável vira null, nunca um código fabricado.
	if result.ExtractedCurrency != nil && !catalogs.HasCurrency(*result.ExtractedCurrency) {
		log.Printf("⚠️ [ANALYZER] Moneda '%s' fora do catálogo, descartando", *result.ExtractedCurrency)
		result.ExtractedCurrency = nil
	}
	if result.ExtractedContactWayID != nil && !catalogs.HasContactWay(*result.ExtractedContactWayID) {
		log.Printf("⚠️ [ANALYZER] Forma de contato %d fora do catálogo, descartando", *result.ExtractedContactWayID)
		result.ExtractedContactWayID = nil
	}

	return result
}

func renderTranscript(history []entity.Message) string {
	var sb strings.Builder
	for _, msg := range history {
		role := "Asistente"
		if msg.Role == entity.RoleUser {
			role = "Usuario"
		}
		sb.WriteString(role)
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderContactWays(ways map[int]string) string {
	ids := make([]int, 0, len(ways))
	for id := range ways {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var sb strings.Builder
	for _, id := range ids {
		sb.WriteString(fmt.Sprintf("- %d: %s\n", id, ways[id]))
	}
	return sb.String()
}

func normalizeString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
