// Package integration runs acts through extraction, parsing, storage, the article
// index and export together.
package integration

import (
	"archive/zip"
	"bytes"
	"html"
	"strings"
)

// minimalDocx returns a .docx whose body has one paragraph per line of text.
// Empty lines become empty paragraphs.
func minimalDocx(text string) []byte {
	var body strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			body.WriteString(`<w:p/>`)
			continue
		}
		body.WriteString(`<w:p><w:r><w:t xml:space="preserve">` + html.EscapeString(line) + `</w:t></w:r></w:p>`)
	}
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body.String() + `</w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

const lawText = `ФЕДЕРАЛЬНЫЙ ЗАКОН
от 5 апреля 2013 г. N 44-ФЗ

"О контрактной системе в сфере закупок"

Принят Государственной Думой 22 марта 2013 года

Глава I. Общие положения

Статья 1. Сфера применения настоящего Федерального закона

1. Настоящий Федеральный закон регулирует отношения, направленные на обеспечение нужд заказчиков.

2. Действие закона распространяется на закупки товаров.

Статья 2. Законодательство о контрактной системе

1. Законодательство основывается на положениях Конституции.

Глава II. Планирование

Статья 16. Планирование закупок

1. Планирование осуществляется посредством формирования планов-графиков.
`

const decreeText = `УКАЗ
ПРЕЗИДЕНТА РОССИЙСКОЙ ФЕДЕРАЦИИ
от 7 мая 2018 г. N 204

"О национальных целях"

Статья 1. Цели

1. Обеспечить устойчивый рост численности населения.

Статья 2. Поручения

1. Правительству разработать национальные проекты.
`
