package scanning

// expenseAnalysisPrompt asks an LLM provider to answer in the same shape an
// expense analysis service returns, so every backend feeds one normalizer.
const expenseAnalysisPrompt = `You are analyzing a restaurant or store receipt. Carefully read all text in the image and report what you find as tagged fields.

Summary fields (one per document):
- VENDOR_NAME: the merchant or restaurant name, usually at the top of the receipt.
- RECEIPT_DATE: the transaction date exactly as printed.
- SUBTOTAL: the amount before tax and tip, exactly as printed (e.g. "$45.00").
- TAX: the tax amount, exactly as printed.

Line item fields (one entry per purchased item):
- ITEM: the item description.
- PRICE: the line price exactly as printed (e.g. "$12.99").
- QUANTITY: the quantity if printed (e.g. "2"), otherwise omit the field.

Return ONLY valid JSON in this exact format:
{
  "documents": [
    {
      "summary_fields": [
        {"type": "VENDOR_NAME", "value": "Store Name"},
        {"type": "RECEIPT_DATE", "value": "03/06/2025"},
        {"type": "SUBTOTAL", "value": "$45.00"},
        {"type": "TAX", "value": "$3.60"}
      ],
      "line_item_groups": [
        {
          "line_items": [
            {"fields": [{"type": "ITEM", "value": "Burger"}, {"type": "PRICE", "value": "$12.99"}, {"type": "QUANTITY", "value": "1"}]}
          ]
        }
      ]
    }
  ]
}

Important:
- Values are always strings, copied from the receipt text
- Skip any field you cannot find instead of guessing
- Do not include tips, totals, payment lines or change due as line items
- Do not include any text before or after the JSON
- Do not use markdown code blocks`
