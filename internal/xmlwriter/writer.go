// =============================================================================
// Triton IMS Bridge - XML Writer Module
// =============================================================================
//
// This module renders canonical transactions as XML for IMS integrations
// that take XML rather than JSON. Element names are the JSON field names of
// the canonical record, so both renderings carry the same information.
//
// XML STRUCTURE:
//
//   <transactions>
//     <transaction n="1">
//       <transaction_type>new_business</transaction_type>
//       <policy_number>POL-1</policy_number>
//       ...
//       <account>
//         <name>Acme Widgets</name>
//         <business_type_code>9</business_type_code>
//         <address>
//           <city>Austin</city>
//         </address>
//       </account>
//       ...
//       <premium>
//         <gross_premium>1500.5</gross_premium>
//         <policy_fee/>                    <!-- null -->
//       </premium>
//       <exposures>
//         <exposure n="1">
//           <coverage>General Liability</coverage>
//           <limits>
//             <occurrence>1000000</occurrence>
//             <aggregate>3000000</aggregate>
//           </limits>
//           <deductible>2500</deductible>
//         </exposure>
//       </exposures>
//     </transaction>
//   </transactions>
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/triton-ims-bridge/internal/types"
)

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// RootElement is the name of the root element.
	// Default: "transactions"
	RootElement string

	// RootAttributes are additional attributes for the root element.
	// Example: {"source": "triton"}
	RootAttributes map[string]string

	// IndexAttribute is the attribute carrying the 1-indexed position of
	// transactions and exposures.
	// Default: "n"
	IndexAttribute string
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		RootElement:           "transactions",
		RootAttributes:        make(map[string]string),
		IndexAttribute:        "n",
	}
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Generate renders transactions with the default options.
func Generate(transactions []types.CanonicalTransaction) ([]byte, error) {
	return GenerateWithOptions(transactions, DefaultGenerateOptions())
}

// GenerateWithOptions renders transactions with custom options.
//
// RETURNS:
//   - The XML document as a byte slice.
//   - An error if the options name an invalid root element.
func GenerateWithOptions(transactions []types.CanonicalTransaction, options GenerateOptions) ([]byte, error) {
	if options.RootElement == "" {
		return nil, fmt.Errorf("root element name is required")
	}

	var buffer bytes.Buffer

	if options.IncludeXMLDeclaration {
		buffer.WriteString(xml.Header)
	}

	root := XMLElement{XMLName: xml.Name{Local: options.RootElement}}
	for key, value := range options.RootAttributes {
		root.Attributes = append(root.Attributes, xml.Attr{Name: xml.Name{Local: key}, Value: value})
	}
	for i := range transactions {
		root.Children = append(root.Children, buildTransactionElement(i+1, &transactions[i], options))
	}

	// An empty document still has an open and a close tag.
	if len(root.Children) == 0 {
		fmt.Fprintf(&buffer, "<%s></%s>\n", options.RootElement, options.RootElement)
		return buffer.Bytes(), nil
	}

	writeElement(&buffer, root, options.Indent, 0)
	return buffer.Bytes(), nil
}

// =============================================================================
// XML DOCUMENT BUILDING
// =============================================================================

// XMLElement represents a generic XML element.
type XMLElement struct {
	XMLName    xml.Name
	Attributes []xml.Attr
	Value      string
	Children   []XMLElement
}

func buildTransactionElement(index int, tx *types.CanonicalTransaction, options GenerateOptions) XMLElement {
	element := indexedElement("transaction", index, options)

	element.Children = []XMLElement{
		simple("transaction_type", string(tx.TransactionType)),
		simple("transaction_id", tx.TransactionID),
		simple("policy_number", tx.PolicyNumber),
		simple("effective_date", tx.EffectiveDate),
		simple("expiration_date", tx.ExpirationDate),
		simple("business_type", tx.BusinessType),
		simple("is_renewal", strconv.FormatBool(tx.IsRenewal)),
		group("account",
			simple("name", tx.Account.Name),
			simple("dba", tx.Account.DBA),
			simple("business_type", tx.Account.BusinessType),
			simple("business_type_code", intValue(tx.Account.BusinessTypeCode)),
			group("address",
				simple("address1", tx.Account.Address.Address1),
				simple("address2", tx.Account.Address.Address2),
				simple("city", tx.Account.Address.City),
				simple("state", tx.Account.Address.State),
				simple("zip", tx.Account.Address.Zip),
			),
		),
		group("producer",
			simple("name", tx.Producer.Name),
			simple("code", tx.Producer.Code),
			simple("email", tx.Producer.Email),
			simple("agency", tx.Producer.Agency),
		),
		group("program",
			simple("name", tx.Program.Name),
			simple("class_of_business", tx.Program.ClassOfBusiness),
			simple("market_segment_code", tx.Program.MarketSegmentCode),
			simple("underwriter", tx.Program.Underwriter),
			simple("line_of_business", string(tx.Program.LineOfBusiness)),
			simple("line_of_business_guid", tx.Program.LineOfBusinessGUID),
			simple("program_id", intValue(tx.Program.ProgramID)),
		),
		group("premium",
			simple("gross_premium", decimalValue(tx.Premium.GrossPremium)),
			simple("policy_fee", decimalValue(tx.Premium.PolicyFee)),
			simple("commission_rate", decimalValue(tx.Premium.CommissionRate)),
		),
	}

	exposures := XMLElement{XMLName: xml.Name{Local: "exposures"}}
	for i, e := range tx.Exposures {
		exposure := indexedElement("exposure", i+1, options)
		exposure.Children = []XMLElement{
			simple("coverage", e.Coverage),
			group("limits",
				simple("occurrence", strconv.FormatInt(e.Limits.Occurrence, 10)),
				simple("aggregate", strconv.FormatInt(e.Limits.Aggregate, 10)),
			),
			simple("deductible", int64Value(e.Deductible)),
		}
		exposures.Children = append(exposures.Children, exposure)
	}
	element.Children = append(element.Children, exposures)

	return element
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func indexedElement(name string, index int, options GenerateOptions) XMLElement {
	element := XMLElement{XMLName: xml.Name{Local: name}}
	if options.IndexAttribute != "" {
		element.Attributes = []xml.Attr{{
			Name:  xml.Name{Local: options.IndexAttribute},
			Value: strconv.Itoa(index),
		}}
	}
	return element
}

// simple creates an element with a text value.
func simple(name, value string) XMLElement {
	return XMLElement{XMLName: xml.Name{Local: name}, Value: value}
}

// group creates an element holding child elements.
func group(name string, children ...XMLElement) XMLElement {
	return XMLElement{XMLName: xml.Name{Local: name}, Children: children}
}

// Null numbers render as empty elements.
func intValue(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func int64Value(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func decimalValue(v *decimal.Decimal) string {
	if v == nil {
		return ""
	}
	return v.String()
}

// writeElement writes an XML element to the buffer with indentation.
func writeElement(buffer *bytes.Buffer, element XMLElement, indent string, level int) {
	for i := 0; i < level; i++ {
		buffer.WriteString(indent)
	}

	buffer.WriteString("<")
	buffer.WriteString(element.XMLName.Local)

	for _, attr := range element.Attributes {
		fmt.Fprintf(buffer, " %s=\"%s\"", attr.Name.Local, escapeXML(attr.Value))
	}

	if len(element.Children) == 0 && element.Value == "" {
		buffer.WriteString("/>\n")
		return
	}

	buffer.WriteString(">")

	if element.Value != "" {
		buffer.WriteString(escapeXML(element.Value))
	} else {
		buffer.WriteString("\n")

		for _, child := range element.Children {
			writeElement(buffer, child, indent, level+1)
		}

		for i := 0; i < level; i++ {
			buffer.WriteString(indent)
		}
	}

	buffer.WriteString("</")
	buffer.WriteString(element.XMLName.Local)
	buffer.WriteString(">\n")
}

// escapeXML escapes special characters for XML.
func escapeXML(s string) string {
	var buffer bytes.Buffer
	xml.EscapeText(&buffer, []byte(s))
	return buffer.String()
}
