// Package accounting maps expense types to the chart of accounts used on
// payment vouchers.
package accounting

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/bizflow/internal/domain/entity"
)

// CreditSubjectBank is the credit side of every reimbursement payment
const CreditSubjectBank = "银行存款"

const debitSubjectPrefix = "管理费用-"

// SubjectMapper maps expense types to accounting subjects (会计科目)
type SubjectMapper struct{}

// NewSubjectMapper creates a new SubjectMapper
func NewSubjectMapper() *SubjectMapper {
	return &SubjectMapper{}
}

var subjects = map[string]string{
	entity.ExpenseTypeTravel:    "差旅费",
	entity.ExpenseTypeMeal:      "业务招待费",
	entity.ExpenseTypeOffice:    "办公费",
	entity.ExpenseTypeTransport: "交通费",
	entity.ExpenseTypeOther:     "其他费用",
}

var displayNames = map[string]string{
	entity.ExpenseTypeTravel:    "差旅费",
	entity.ExpenseTypeMeal:      "餐费",
	entity.ExpenseTypeOffice:    "办公用品",
	entity.ExpenseTypeTransport: "交通费",
	entity.ExpenseTypeOther:     "其他",
}

// DebitSubject returns the expense account debited for an expense type
func (m *SubjectMapper) DebitSubject(expenseType string) string {
	if subject, ok := subjects[expenseType]; ok {
		return debitSubjectPrefix + subject
	}
	return debitSubjectPrefix + subjects[entity.ExpenseTypeOther]
}

// CreditSubject returns the account credited when the expense is paid
func (m *SubjectMapper) CreditSubject(string) string {
	return CreditSubjectBank
}

// DisplayName returns the Chinese name shown in the 报销类型 column
func (m *SubjectMapper) DisplayName(expenseType string) string {
	if name, ok := displayNames[expenseType]; ok {
		return name
	}
	return displayNames[entity.ExpenseTypeOther]
}

var (
	capitalDigits = []string{"零", "壹", "贰", "叁", "肆", "伍", "陆", "柒", "捌", "玖"}
	capitalUnits  = []string{"", "拾", "佰", "仟"}
	sectionUnits  = []string{"", "万", "亿"}
)

// CapitalizeAmount renders an amount in Chinese financial capitals
// (大写金额), e.g. 123.50 becomes 壹佰贰拾叁元伍角.
func CapitalizeAmount(amount decimal.Decimal) string {
	amount = amount.Abs().Round(2)
	yuan := amount.IntPart()
	cents := amount.Shift(2).IntPart() % 100

	if yuan == 0 && cents == 0 {
		return "零元整"
	}
	if yuan >= 1_0000_0000_0000 {
		return amount.StringFixed(2)
	}

	var b strings.Builder
	if yuan == 0 {
		b.WriteString(capitalDigits[0])
	} else {
		b.WriteString(capitalizeInteger(yuan))
	}
	b.WriteString("元")

	jiao, fen := cents/10, cents%10
	if jiao == 0 && fen == 0 {
		b.WriteString("整")
		return b.String()
	}
	if jiao != 0 {
		b.WriteString(capitalDigits[jiao] + "角")
	}
	if fen != 0 {
		if jiao == 0 {
			b.WriteString(capitalDigits[0])
		}
		b.WriteString(capitalDigits[fen] + "分")
	}
	return b.String()
}

func capitalizeInteger(n int64) string {
	var sections []int64
	for n > 0 {
		sections = append(sections, n%10000)
		n /= 10000
	}

	var b strings.Builder
	zeroPending := false
	for i := len(sections) - 1; i >= 0; i-- {
		section := sections[i]
		if section == 0 {
			continue
		}
		divisor := int64(1000)
		for pos := 3; pos >= 0; pos-- {
			d := section / divisor % 10
			divisor /= 10
			if d == 0 {
				if b.Len() > 0 {
					zeroPending = true
				}
				continue
			}
			if zeroPending {
				b.WriteString(capitalDigits[0])
				zeroPending = false
			}
			b.WriteString(capitalDigits[d] + capitalUnits[pos])
		}
		b.WriteString(sectionUnits[i])
	}
	return b.String()
}
