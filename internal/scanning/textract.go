package scanning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

const textractTimeout = 30 * time.Second

// TextractAPI is the subset of the Textract client used here
type TextractAPI interface {
	AnalyzeExpense(ctx context.Context, params *textract.AnalyzeExpenseInput, optFns ...func(*textract.Options)) (*textract.AnalyzeExpenseOutput, error)
}

// TextractConfig holds optional credentials for AWS Textract.
// Empty keys fall back to the default AWS credential chain.
type TextractConfig struct {
	Region    string
	AccessKey string
	SecretKey string
}

// Textract implements the Extractor interface using AWS Textract AnalyzeExpense
type Textract struct {
	api TextractAPI
}

// NewTextract creates a Textract Extractor from AWS configuration
func NewTextract(ctx context.Context, cfg TextractConfig) (*Textract, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return NewTextractWithAPI(textract.NewFromConfig(awsCfg)), nil
}

// NewTextractWithAPI creates a Textract Extractor with a custom client for testing
func NewTextractWithAPI(api TextractAPI) *Textract {
	return &Textract{api: api}
}

// AnalyzeExpense runs AnalyzeExpense on the document bytes
func (t *Textract) AnalyzeExpense(ctx context.Context, imageData []byte, contentType string) (*AnalysisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, textractTimeout)
	defer cancel()

	docBytes, converted, err := prepareForTextract(imageData, contentType)
	if err != nil {
		return nil, err
	}
	if converted {
		slog.Debug("Converted upload for Textract", "content_type", contentType, "size", len(docBytes))
	}

	out, err := t.api.AnalyzeExpense(ctx, &textract.AnalyzeExpenseInput{
		Document: &types.Document{Bytes: docBytes},
	})
	if err != nil {
		return nil, fmt.Errorf("calling textract: %w", err)
	}

	return fromTextract(out.ExpenseDocuments), nil
}

// Close is a no-op; the AWS client holds no resources
func (t *Textract) Close() error {
	return nil
}

// fromTextract maps Textract's expense documents to the tag/value shape
func fromTextract(docs []types.ExpenseDocument) *AnalysisResult {
	result := &AnalysisResult{Documents: make([]ExpenseDocument, 0, len(docs))}
	for _, doc := range docs {
		out := ExpenseDocument{
			SummaryFields: fromExpenseFields(doc.SummaryFields),
		}
		for _, group := range doc.LineItemGroups {
			var g LineItemGroup
			for _, item := range group.LineItems {
				g.LineItems = append(g.LineItems, LineItem{
					Fields: fromExpenseFields(item.LineItemExpenseFields),
				})
			}
			out.LineItemGroups = append(out.LineItemGroups, g)
		}
		result.Documents = append(result.Documents, out)
	}
	return result
}

func fromExpenseFields(fields []types.ExpenseField) []Field {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		var field Field
		if f.Type != nil {
			field.Type = aws.ToString(f.Type.Text)
		}
		if f.ValueDetection != nil {
			field.Value = aws.ToString(f.ValueDetection.Text)
		}
		out = append(out, field)
	}
	return out
}
