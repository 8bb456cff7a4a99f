// ABOUTME: Builder for editable template-based email asset payloads.
// ABOUTME: Produces the slot/block structure Content Builder needs for editing.

package emailgen

import (
	"fmt"
	"sort"
	"strings"
)

// Block asset type codes from the vendor content taxonomy.
var blockAssetTypes = map[string]assetType{
	"text":     {ID: 196, Name: "textblock"},
	"image":    {ID: 199, Name: "imageblock"},
	"button":   {ID: 195, Name: "buttonblock"},
	"html":     {ID: 197, Name: "htmlblock"},
	"freeform": {ID: 198, Name: "freeformblock"},
}

type assetType struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Block is one content unit placed within a slot.
type Block struct {
	Key     string            `json:"key"`
	Type    string            `json:"type"`
	Content string            `json:"content"`
	Design  string            `json:"design,omitempty"`
	Styling map[string]string `json:"styling,omitempty"`
}

// Params describe the email to build.
type Params struct {
	Name      string             `json:"name"`
	Subject   string             `json:"subject"`
	Preheader string             `json:"preheader,omitempty"`
	Slots     map[string][]Block `json:"slots,omitempty"`
}

// Build assembles the full editable-email asset payload (assetType 207).
// The result is the request body for POST /asset/v1/content/assets; Build
// itself never talks to the vendor, so the caller stays on the gated REST
// path for the actual creation.
func Build(p Params) (map[string]any, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("email name is required")
	}
	if p.Subject == "" {
		return nil, fmt.Errorf("email subject is required")
	}

	slotKeys := sortedSlotKeys(p.Slots)
	slots, err := buildSlots(p.Slots, slotKeys)
	if err != nil {
		return nil, err
	}

	templateSlots := make(map[string]any, len(slotKeys))
	for _, key := range slotKeys {
		templateSlots[key] = map[string]any{"locked": false}
	}

	return map[string]any{
		"name": p.Name,
		"assetType": map[string]any{
			"id":   207,
			"name": "templatebasedemail",
		},
		"data": map[string]any{
			"email": map[string]any{
				"options": map[string]any{"characterEncoding": "utf-8"},
			},
		},
		"meta": map[string]any{
			"globalStyles": map[string]any{
				"isLocked": false,
				"body": map[string]any{
					"font-family":      "Arial,helvetica,sans-serif",
					"font-size":        "16px",
					"color":            "#000000",
					"background-color": "#FFFFFF",
				},
			},
		},
		"views": map[string]any{
			"subjectline": map[string]any{"content": p.Subject},
			"preheader":   map[string]any{"content": p.Preheader},
			"html": map[string]any{
				"content": htmlShell(slotKeys),
				"slots":   slots,
				"template": map[string]any{
					"id":        0,
					"assetType": map[string]any{"id": 214, "name": "defaulttemplate"},
					"name":      "CONTENTTEMPLATES_C",
					"slots":     templateSlots,
				},
			},
		},
	}, nil
}

// buildSlots renders each slot's block references and block definitions.
func buildSlots(slots map[string][]Block, keys []string) (map[string]any, error) {
	out := make(map[string]any, len(keys))
	for _, slotKey := range keys {
		blocks := slots[slotKey]

		var refs strings.Builder
		blockMap := make(map[string]any, len(blocks))
		for _, block := range blocks {
			at, ok := blockAssetTypes[block.Type]
			if !ok {
				return nil, fmt.Errorf("unknown block type %q in slot %q", block.Type, slotKey)
			}
			if block.Key == "" {
				return nil, fmt.Errorf("block in slot %q is missing a key", slotKey)
			}

			refs.WriteString(`<div data-type="block" data-key="` + block.Key + `"></div>`)

			entry := map[string]any{
				"assetType": at,
				"content":   block.Content,
				"design":    blockDesign(block),
				"meta": map[string]any{
					"wrapperStyles": map[string]any{
						"mobile":  map[string]any{"visible": true},
						"styling": stylingOf(block),
					},
				},
			}
			blockMap[block.Key] = entry
		}

		out[slotKey] = map[string]any{
			"content": refs.String(),
			"design":  `<p style="border: #cccccc dashed 1px; padding:10px;">Drop blocks or content here</p>`,
			"blocks":  blockMap,
		}
	}
	return out, nil
}

func stylingOf(b Block) map[string]string {
	if b.Styling == nil {
		return map[string]string{}
	}
	return b.Styling
}

// blockDesign returns the Content Builder preview markup, falling back to a
// default per block type.
func blockDesign(b Block) string {
	if b.Design != "" {
		return b.Design
	}
	previews := map[string]string{
		"text":     `<div style="padding:20px; min-height:100px;">Text content preview</div>`,
		"image":    `<div style="height:150px; background:#f0f0f0; text-align:center; line-height:150px;">Image Placeholder</div>`,
		"button":   `<div style="text-align:center; padding:20px;"><span style="background:#0176d3; color:#fff; padding:12px 30px; display:inline-block; border-radius:4px;">Button</span></div>`,
		"html":     `<div style="padding:20px; background:#f9f9f9;">Custom HTML</div>`,
		"freeform": `<div style="padding:20px; border:1px solid #ddd;">Free Form Content</div>`,
	}
	return `<table width="100%"><tr><td>` + previews[b.Type] + `</td></tr></table>`
}

// htmlShell renders the outer HTML document with one slot placeholder row
// per slot key.
func htmlShell(slotKeys []string) string {
	var rows strings.Builder
	for _, key := range slotKeys {
		rows.WriteString(`<tr><td><div data-type="slot" data-key="` + key + `"></div></td></tr>` + "\n")
	}

	return `<!DOCTYPE HTML PUBLIC "-//W3C//DTD HTML 4.01 Transitional//EN" "http://www.w3.org/TR/html4/loose.dtd">
<html>
<head>
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
  <style type="text/css">
    body {-webkit-text-size-adjust:100%; -ms-text-size-adjust:100%; margin:0 !important;}
    @media only screen and (max-width: 480px) {
      .container {width: 100% !important;}
    }
  </style>
</head>
<body bgcolor="#ffffff">
  <div style="font-size:0; line-height:0;"><custom name="opencounter" type="tracking"><custom name="usermatch" type="tracking" /></div>
  <table width="100%" border="0" cellpadding="0" cellspacing="0">
    <tr><td align="center">
      <table width="600" class="container">
        ` + rows.String() + `
      </table>
    </td></tr>
  </table>
  <custom type="footer" />
</body>
</html>`
}

func sortedSlotKeys(slots map[string][]Block) []string {
	keys := make([]string, 0, len(slots))
	for k := range slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
