package roster

import "strings"

// SchemaV1 - версия позиционной схемы столбцов импорта.
const SchemaV1 = "v1"

// Позиции столбцов схемы v1. Сопоставление идёт по позиции, а не по заголовку.
const (
	ColName = iota
	ColAge
	ColBirthday
	ColGender
	ColBelt
	ColStripes
	ColPoints
	ColLocalXP
	ColParentName
	ColParentEmail
	ColParentPhone
	ColLocation
	ColClass
)

// TemplateHeader - заголовок шаблона CSV для скачивания.
// Необязательные столбцы Location и Class можно дописать в конец.
var TemplateHeader = []string{
	"Name", "Age", "Birthday", "Gender", "Belt", "Stripes", "Points", "LocalXP",
	"Parent Name", "Email", "Phone",
}

var templateSample = []string{
	"Jane Doe", "9", "2017-04-12", "Female", "White", "2", "200", "0",
	"John Doe", "john.doe@example.com", "555-0100",
}

// Template возвращает шаблон CSV: заголовок и одна строка-пример.
func Template() string {
	return strings.Join(TemplateHeader, ",") + "\n" + strings.Join(templateSample, ",") + "\n"
}

// IsHeaderRow проверяет, является ли строка заголовком:
// она должна содержать подстроки "name" и "belt" без учёта регистра.
// Ученик по имени "Name Belt" будет ошибочно принят за заголовок.
func IsHeaderRow(cells []string) bool {
	joined := strings.ToLower(strings.Join(cells, " "))
	return strings.Contains(joined, "name") && strings.Contains(joined, "belt")
}

func cellAt(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}

func nonEmptyCount(cells []string) int {
	n := 0
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}
