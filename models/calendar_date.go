package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// CalendarDateLayout формат хранения календарной даты
const CalendarDateLayout = "2006-01-02"

// CalendarDate представляет календарную дату в формате YYYY-MM-DD.
// Даты входа/выхода сравниваются как строки, а не как time.Time,
// чтобы исключить сдвиг дня из-за часовых поясов.
type CalendarDate string

// NewCalendarDate создает CalendarDate из time.Time (по локальному календарю)
func NewCalendarDate(t time.Time) CalendarDate {
	return CalendarDate(t.Format(CalendarDateLayout))
}

// Today возвращает текущую календарную дату
func Today() CalendarDate {
	return NewCalendarDate(time.Now())
}

// ParseCalendarDate разбирает строку YYYY-MM-DD
func ParseCalendarDate(s string) (CalendarDate, error) {
	if _, err := time.Parse(CalendarDateLayout, s); err != nil {
		return "", fmt.Errorf("некорректная дата '%s': ожидается формат YYYY-MM-DD", s)
	}
	return CalendarDate(s), nil
}

// String возвращает строковое представление даты
func (d CalendarDate) String() string {
	return string(d)
}

// IsZero проверяет, что дата не задана
func (d CalendarDate) IsZero() bool {
	return d == ""
}

// After сравнивает даты лексикографически: d > other
func (d CalendarDate) After(other CalendarDate) bool {
	return string(d) > string(other)
}

// Before сравнивает даты лексикографически: d < other
func (d CalendarDate) Before(other CalendarDate) bool {
	return string(d) < string(other)
}

// Time конвертирует дату в time.Time (полночь UTC)
func (d CalendarDate) Time() (time.Time, error) {
	return time.Parse(CalendarDateLayout, string(d))
}

// Value реализует driver.Valuer для сохранения в БД
func (d CalendarDate) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return string(d), nil
}

// Scan реализует sql.Scanner для чтения из БД
func (d *CalendarDate) Scan(value interface{}) error {
	if value == nil {
		*d = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*d = CalendarDate(v)
	case []byte:
		*d = CalendarDate(v)
	case time.Time:
		*d = NewCalendarDate(v)
	default:
		return fmt.Errorf("неподдерживаемый тип для CalendarDate: %T", value)
	}
	// Часть драйверов возвращает дату с временной составляющей
	if len(*d) > 10 {
		*d = (*d)[:10]
	}
	return nil
}
