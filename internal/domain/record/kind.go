package record

import (
	"fmt"

	"github.com/danielgtaylor/huma/v2"
)

// Kind - вид синхронизируемой записи. Множество закрыто.
type Kind string

const (
	KindSensorData Kind = "sensor-data"
	KindAlert      Kind = "alert"
	KindFarm       Kind = "farm"
)

// Kinds возвращает виды записей в порядке обработки при выгрузке
func Kinds() []Kind {
	return []Kind{KindSensorData, KindAlert, KindFarm}
}

func (Kind) Schema(_ huma.Registry) *huma.Schema {
	return &huma.Schema{
		Type: "string",
		Enum: []any{
			string(KindSensorData),
			string(KindAlert),
			string(KindFarm),
		},
		Description: "Вид синхронизируемой записи",
		Examples:    []any{KindSensorData},
	}
}

// Validate реализует интерфейс huma.Validatable.
func (k Kind) Validate() error {
	switch k {
	case KindSensorData, KindAlert, KindFarm:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
}

// String возвращает строковое представление вида.
func (k Kind) String() string {
	return string(k)
}

// Table возвращает имя локальной таблицы вида
func (k Kind) Table() string {
	switch k {
	case KindSensorData:
		return "sensor_data"
	case KindAlert:
		return "alerts"
	case KindFarm:
		return "farms"
	default:
		return ""
	}
}

// EnvelopeType возвращает значение поля type в пакете выгрузки
func (k Kind) EnvelopeType() string {
	switch k {
	case KindSensorData:
		return "sensor-data"
	case KindAlert:
		return "alerts"
	case KindFarm:
		return "farms"
	default:
		return ""
	}
}

// SyncPath возвращает путь эндпоинта облака для выгрузки пакета
func (k Kind) SyncPath() string {
	t := k.EnvelopeType()
	if t == "" {
		return ""
	}
	return "/sync/" + t
}

// KindFromEnvelope разбирает тип пакета ("sensor-data", "alerts", "farms")
func KindFromEnvelope(t string) (Kind, error) {
	for _, k := range Kinds() {
		if k.EnvelopeType() == t {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: envelope type %q", ErrUnknownKind, t)
}
