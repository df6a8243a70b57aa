package cleaner

import (
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// newMarkdownConverter builds the shared converter for description HTML:
//
//   - base plugin: drops script, style, head, meta, comments and other
//     non-content noise that survives sanitization.
//   - commonmark plugin: headings, lists, emphasis, links — the markup
//     posting descriptions actually use.
//   - table plugin: compensation bands and schedules sometimes arrive as
//     tables; minimal cell padding keeps them compact.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}
