package render

import (
	"fmt"
	"io"
	"scorm_trends_backend/internal/model"
	"strings"
	"text/tabwriter"
)

// QuestionLabel 第一列标签，题号沿用记录中的编号（从 0 开始）
func QuestionLabel(slot int) string {
	return fmt.Sprintf("Question %d", slot)
}

// TextTable 把报表以对齐的纯文本表格写到 Out
type TextTable struct {
	Out io.Writer
}

func NewTextTable(out io.Writer) *TextTable {
	return &TextTable{Out: out}
}

func (t *TextTable) Notice(message string) error {
	_, err := fmt.Fprintln(t.Out, message)
	return err
}

func (t *TextTable) Table(sco model.ScormSco, rows []model.FrequencyRow) error {
	if _, err := fmt.Fprintf(t.Out, "%s\n%s\n", sco.Title, strings.Repeat("=", len([]rune(sco.Title)))); err != nil {
		return err
	}

	w := tabwriter.NewWriter(t.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Question\tElement\tValue\tFrequency")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t- %s\t%s\t%d\n", QuestionLabel(row.Slot), row.Element, sanitizeCell(row.Value), row.Frequency)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintln(t.Out)
	return err
}

// 制表符和换行会破坏列对齐
func sanitizeCell(v string) string {
	return strings.NewReplacer("\t", " ", "\r", " ", "\n", " ").Replace(v)
}
