package filter

import (
	"fmt"
	"strings"

	"github.com/minios-linux/xmlkit/profile"
	"github.com/minios-linux/xmlkit/xmldoc"
)

// unitInfo describes a matched text unit element.
type unitInfo struct {
	name    string
	note    string
	hasNote bool
}

// rule decides whether an element is a text unit.
type rule func(n *xmldoc.Node) (unitInfo, bool)

// ruleFor returns the extraction rule of a profile.
func ruleFor(p profile.Profile) rule {
	switch p.ID {
	case profile.IDResx:
		return resxRule
	case profile.IDAndroidStrings:
		return androidRule
	case profile.IDXtb:
		return xtbRule
	}
	return genericRule
}

// genericRule: leaf elements with text, named by id or name.
func genericRule(n *xmldoc.Node) (unitInfo, bool) {
	if n.HasElementChildren() || n.IsBlank() {
		return unitInfo{}, false
	}
	var info unitInfo
	if v, ok := n.AttrValue("id"); ok {
		info.name = v
	} else if v, ok := n.AttrValue("name"); ok {
		info.name = v
	}
	return info, true
}

// resxRule: <data name="..."><value>text</value><comment>note</comment></data>.
// Entries carrying a type or mimetype hold binary data and are skipped.
func resxRule(n *xmldoc.Node) (unitInfo, bool) {
	if n.Name.Local != "value" || n.Parent == nil || n.Parent.Name.Local != "data" || n.IsBlank() {
		return unitInfo{}, false
	}
	data := n.Parent
	if _, ok := data.AttrValue("type"); ok {
		return unitInfo{}, false
	}
	if _, ok := data.AttrValue("mimetype"); ok {
		return unitInfo{}, false
	}
	info := unitInfo{}
	info.name, _ = data.AttrValue("name")
	if c := data.Child("comment"); c != nil && !c.IsBlank() {
		info.note = strings.TrimSpace(c.Text())
		info.hasNote = true
	}
	return info, true
}

// androidRule: <string>, and <item> inside <string-array> or <plurals>,
// unless marked translatable="false". Array items are named name[i],
// plural items name#quantity.
func androidRule(n *xmldoc.Node) (unitInfo, bool) {
	if n.IsBlank() {
		return unitInfo{}, false
	}
	switch n.Name.Local {
	case "string":
		if !translatable(n) {
			return unitInfo{}, false
		}
		info := unitInfo{}
		info.name, _ = n.AttrValue("name")
		info.note, info.hasNote = n.AttrValue("description")
		return info, true

	case "item":
		parent := n.Parent
		if parent == nil || !translatable(parent) || !translatable(n) {
			return unitInfo{}, false
		}
		name, _ := parent.AttrValue("name")
		info := unitInfo{}
		switch parent.Name.Local {
		case "string-array":
			info.name = fmt.Sprintf("%s[%d]", name, itemIndex(parent, n))
		case "plurals":
			q, _ := n.AttrValue("quantity")
			info.name = name + "#" + q
		default:
			return unitInfo{}, false
		}
		if info.note, info.hasNote = n.AttrValue("description"); !info.hasNote {
			info.note, info.hasNote = parent.AttrValue("description")
		}
		return info, true
	}
	return unitInfo{}, false
}

// xtbRule: <translation id="...">text</translation>.
func xtbRule(n *xmldoc.Node) (unitInfo, bool) {
	if n.Name.Local != "translation" || n.IsBlank() {
		return unitInfo{}, false
	}
	info := unitInfo{}
	info.name, _ = n.AttrValue("id")
	return info, true
}

func translatable(n *xmldoc.Node) bool {
	v, ok := n.AttrValue("translatable")
	return !ok || !strings.EqualFold(v, "false")
}

// itemIndex returns the position of item among the <item> children of parent.
func itemIndex(parent, item *xmldoc.Node) int {
	i := 0
	for _, c := range parent.Elements() {
		if c == item {
			return i
		}
		if c.Name.Local == "item" {
			i++
		}
	}
	return i
}
