package llm

import "fmt"

// Provider тег вендора; определяет клиента и допустимый
// диапазон temperature.
type Provider string

const (
	ProviderYandex   Provider = "yandex"
	ProviderDeepSeek Provider = "deepseek"
)

// TemperatureRange возвращает допустимый диапазон temperature провайдера.
// Диапазоны у вендоров не совпадают: Yandex принимает [0, 1], DeepSeek [0, 2].
func (p Provider) TemperatureRange() (min, max float64) {
	switch p {
	case ProviderYandex:
		return 0.0, 1.0
	default:
		return 0.0, 2.0
	}
}

// ClampTemperature приводит temperature к диапазону провайдера.
// Значения вне диапазона молча обрезаются на границе вызова.
func (p Provider) ClampTemperature(t float64) float64 {
	min, max := p.TemperatureRange()
	if t < min {
		return min
	}
	if t > max {
		return max
	}
	return t
}

// Model запись статического каталога моделей.
type Model struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	ModelPath   string   `json:"model_path"`
	Provider    Provider `json:"provider"`
}

// ModelURI строит идентификатор модели для запроса. Yandex требует
// ресурсный путь с folder id, DeepSeek принимает имя модели как есть.
func (m Model) ModelURI(folderID string) string {
	if m.Provider == ProviderYandex {
		return fmt.Sprintf("gpt://%s/%s", folderID, m.ModelPath)
	}
	return m.ModelPath
}

// Статический каталог. Добавление модели — правка реестра,
// не runtime-операция.
var catalog = []Model{
	{Name: "YANDEX_LATEST", DisplayName: "YandexGPT 5.1 Pro", ModelPath: "yandexgpt-5.1/latest", Provider: ProviderYandex},
	{Name: "YANDEX_LITE", DisplayName: "YandexGPT 5 Lite", ModelPath: "yandexgpt-5-lite/latest", Provider: ProviderYandex},
	{Name: "DEEPSEEK_CHAT", DisplayName: "DeepSeek Chat", ModelPath: "deepseek-chat", Provider: ProviderDeepSeek},
	{Name: "DEEPSEEK_REASONER", DisplayName: "DeepSeek Reasoner", ModelPath: "deepseek-reasoner", Provider: ProviderDeepSeek},
}

// DefaultModel модель по умолчанию для новых установок и
// неизвестных сохранённых имён.
func DefaultModel() Model {
	return catalog[0]
}

// Models возвращает копию каталога.
func Models() []Model {
	out := make([]Model, len(catalog))
	copy(out, catalog)
	return out
}

// ModelByName ищет модель по имени; неизвестное имя даёт модель
// по умолчанию, чтобы устаревшее сохранённое значение не ломало запуск.
func ModelByName(name string) Model {
	for _, m := range catalog {
		if m.Name == name {
			return m
		}
	}
	return DefaultModel()
}
