package scanning

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// mockTextractAPI is a mock implementation of TextractAPI
type mockTextractAPI struct {
	input  *textract.AnalyzeExpenseInput
	output *textract.AnalyzeExpenseOutput
	err    error
}

func (m *mockTextractAPI) AnalyzeExpense(ctx context.Context, params *textract.AnalyzeExpenseInput, optFns ...func(*textract.Options)) (*textract.AnalyzeExpenseOutput, error) {
	m.input = params
	if m.err != nil {
		return nil, m.err
	}
	return m.output, nil
}

func expenseField(typ, value string) types.ExpenseField {
	return types.ExpenseField{
		Type:           &types.ExpenseType{Text: aws.String(typ)},
		ValueDetection: &types.ExpenseDetection{Text: aws.String(value)},
	}
}

var _ = Describe("Textract", func() {
	var (
		api         *mockTextractAPI
		data        []byte
		contentType string
		result      *AnalysisResult
		err         error
	)

	BeforeEach(func() {
		api = &mockTextractAPI{
			output: &textract.AnalyzeExpenseOutput{
				ExpenseDocuments: []types.ExpenseDocument{{
					SummaryFields: []types.ExpenseField{
						expenseField("VENDOR_NAME", "Test Restaurant"),
						expenseField("TAX", "$3.60"),
						{Type: &types.ExpenseType{Text: aws.String("OTHER")}},
					},
					LineItemGroups: []types.LineItemGroup{{
						LineItems: []types.LineItemFields{{
							LineItemExpenseFields: []types.ExpenseField{
								expenseField("ITEM", "Burger"),
								expenseField("PRICE", "12.99"),
							},
						}},
					}},
				}},
			},
		}
		data = []byte("fake jpeg data")
		contentType = "image/jpeg"
	})

	JustBeforeEach(func() {
		result, err = NewTextractWithAPI(api).AnalyzeExpense(context.Background(), data, contentType)
	})

	When("the analysis succeeds", func() {
		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("sends JPEG bytes unchanged", func() {
			Expect(api.input.Document.Bytes).To(Equal(data))
		})

		It("maps summary fields", func() {
			Expect(result.Documents).To(HaveLen(1))
			Expect(result.Documents[0].SummaryFields).To(Equal([]Field{
				{Type: FieldVendorName, Value: "Test Restaurant"},
				{Type: FieldTax, Value: "$3.60"},
				{Type: "OTHER", Value: ""},
			}))
		})

		It("maps line items", func() {
			Expect(result.Documents[0].LineItemGroups).To(HaveLen(1))
			Expect(result.Documents[0].LineItemGroups[0].LineItems[0].Fields).To(Equal([]Field{
				{Type: FieldItem, Value: "Burger"},
				{Type: FieldPrice, Value: "12.99"},
			}))
		})
	})

	When("the upload is a PDF", func() {
		BeforeEach(func() {
			contentType = "application/pdf"
		})

		It("sends the PDF unchanged", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(api.input.Document.Bytes).To(Equal(data))
		})
	})

	When("the upload is not a format Textract reads", func() {
		BeforeEach(func() {
			contentType = "image/webp"
		})

		It("returns a conversion error without calling Textract", func() {
			Expect(err).To(MatchError(ContainSubstring("converting image to PNG")))
			Expect(err).To(MatchError(ErrUnreadableDocument))
			Expect(api.input).To(BeNil())
		})
	})

	When("Textract fails", func() {
		var setupErr error

		BeforeEach(func() {
			setupErr = errors.New("access denied")
			api.err = setupErr
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(setupErr))
		})
	})
})
