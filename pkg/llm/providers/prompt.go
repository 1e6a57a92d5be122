package providers

import "fmt"

// Протокольный контракт с удалённой моделью: ответ должен быть строкой
// с JSON-конвертом без Markdown. Модели соблюдают его не всегда,
// поэтому локальная обработка всё равно снимает code fences.
const responseFormatInstruction = `
ВАЖНО: Всегда отвечай строго в следующем формате в виде строки, но чтоб его можно было распарсить как JSON.
Не используй Markdown совершенно. Не оборачивай ответ в тройные обратные кавычки ` + "```" + ` ни в начале, ни в конце. Отвечай чистой строкой без какого-либо форматирования.

{
  "status": "success",
  "data": {
    "text": "Основной текст ответа от модели",
    "metadata": {
      "model": "%[1]s",
      "timestamp": "%[2]s",
      "tokens_used": количество использованных токенов
    }
  },
  "error": null
}

Или в случае ошибки:

{
  "status": "error",
  "data": null,
  "error": {
    "code": "код ошибки",
    "message": "Описание ошибки",
    "details": {
      "retry_after": 60
    }
  }
}

ОБЯЗАТЕЛЬНО используй timestamp: "%[2]s" в поле metadata.timestamp
ОБЯЗАТЕЛЬНО не используй тройные обратные кавычки ` + "```" + ` в начале и конце ответа, не используй блоки кода и не добавляй любые символы форматирования.`

// formatSystemPrompt дополняет пользовательский системный промпт
// инструкцией о формате ответа.
func formatSystemPrompt(systemPrompt, modelDisplayName, timestamp string) string {
	return systemPrompt + fmt.Sprintf(responseFormatInstruction, modelDisplayName, timestamp)
}
