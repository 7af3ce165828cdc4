package service

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	interactionPrefixRe = regexp.MustCompile(`(?i)cmi\.interactions_`)
	idSuffixRe          = regexp.MustCompile(`(?i)\.id`)
	// 十进制数字，允许符号、小数和指数；不接受十六进制、inf、NaN
	numericRe = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
)

// trimChars 只去掉 ASCII 空白和 NUL，其他 Unicode 空白保留，保留下来的编号不算数字
const trimChars = " \t\n\r\x00\x0B"

// questionCounter 根据 cmi.interactions_N.id 元素推算题目数
type questionCounter struct {
	matched bool
	max     float64
}

func (c *questionCounter) Observe(element string) {
	c.matched = true
	num := strings.Trim(idSuffixRe.ReplaceAllString(interactionPrefixRe.ReplaceAllString(element, ""), ""), trimChars)
	if !numericRe.MatchString(num) {
		return
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return
	}
	if v > c.max {
		c.max = v
	}
}

// Count 题号从 0 开始，所以是最大题号 + 1；一条匹配记录都没有时为 0。
// maxSlots > 0 时截断
func (c *questionCounter) Count(maxSlots int) int {
	if !c.matched {
		return 0
	}
	n := math.Ceil(c.max + 1)
	if n > math.MaxInt32 {
		n = math.MaxInt32
	}
	count := int(n)
	if maxSlots > 0 && count > maxSlots {
		count = maxSlots
	}
	return count
}

// EstimateQuestionCount 传入的 elements 应当已经按 cmi.interactions_%.id 过滤过
func EstimateQuestionCount(elements []string, maxSlots int) int {
	var c questionCounter
	for _, el := range elements {
		c.Observe(el)
	}
	return c.Count(maxSlots)
}
