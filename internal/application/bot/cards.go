package bot

import (
	"strconv"

	"github.com/plannerhq/planner/internal/adapters/botframework"
)

const submitAction = "crear_tarjeta"

func heroCard(title, text string, buttons ...map[string]string) botframework.Attachment {
	content := map[string]any{
		"title": title,
		"text":  text,
	}
	if len(buttons) > 0 {
		content["buttons"] = buttons
	}
	return botframework.Attachment{ContentType: botframework.ContentTypeHeroCard, Content: content}
}

func messageBack(title, text string) map[string]string {
	return map[string]string{"type": "messageBack", "title": title, "text": text, "displayText": text}
}

func welcomeCard() botframework.Attachment {
	return heroCard(
		"Bienvenido a Planner Bot",
		"Te enviaré notificaciones cuando te mencionen en Planner y puedes crear tarjetas desde aquí.",
		messageBack("Vincular cuenta", "conectar"),
		messageBack("Ayuda", "ayuda"),
	)
}

func linkCodeCard(code string, minutes int) botframework.Attachment {
	return heroCard(
		"Vincula tu cuenta",
		"Tu código de vinculación es: **"+code+"**\n\n"+
			"1. Abre Planner en el navegador\n"+
			"2. Ve a Configuración\n"+
			"3. Introduce este código en \"Vincular Teams\"\n\n"+
			"El código expira en "+strconv.Itoa(minutes)+" minutos.",
	)
}

// cardForm renders the create-card form prefilled with what the user
// already typed.
func cardForm(intent CardIntent) botframework.Attachment {
	priority := func(title, value string) map[string]string {
		return map[string]string{"title": title, "value": value}
	}
	body := []map[string]any{
		{"type": "TextBlock", "text": "Nueva tarjeta", "weight": "Bolder", "size": "Medium"},
		{"type": "Input.Text", "id": "tablero", "label": "Tablero", "isRequired": true, "value": intent.Board},
		{"type": "Input.Text", "id": "titulo", "label": "Título", "isRequired": true, "value": intent.Title},
		{"type": "Input.Text", "id": "columna", "label": "Columna", "placeholder": "Primera columna", "value": intent.Column},
		{"type": "Input.Text", "id": "descripcion", "label": "Descripción", "isMultiline": true, "value": intent.Description},
		{"type": "Input.ChoiceSet", "id": "prioridad", "label": "Prioridad", "value": intent.Priority, "choices": []map[string]string{
			priority("Baja", "baja"),
			priority("Media", "media"),
			priority("Alta", "alta"),
			priority("Urgente", "urgente"),
		}},
		{"type": "Input.Date", "id": "fecha", "label": "Fecha límite", "value": intent.Due},
	}
	return botframework.Attachment{
		ContentType: botframework.ContentTypeAdaptiveCard,
		Content: map[string]any{
			"type":    "AdaptiveCard",
			"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
			"version": "1.4",
			"body":    body,
			"actions": []map[string]any{{
				"type":  "Action.Submit",
				"title": "Crear tarjeta",
				"data":  map[string]string{"action": submitAction},
			}},
		},
	}
}
