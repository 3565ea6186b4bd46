package catalog

import "fmt"

// VariantSelection is the view-local choice of one value per attribute.
// It starts from the first offered value of every attribute, which is what
// the detail view preselects.
//
// VariantSelection 是视图本地的变体选择，每个属性对应一个取值。
// 初始值为每个属性提供的第一个取值，与详情视图的预选一致。
type VariantSelection struct {
	product  Product
	selected map[string]string
}

// NewVariantSelection creates a selection preset to the product defaults.
//
// NewVariantSelection 创建一个预设为商品默认值的选择。
func NewVariantSelection(p Product) *VariantSelection {
	return &VariantSelection{
		product:  p,
		selected: p.DefaultVariants(),
	}
}

// DefaultVariants maps each attribute name to its first value. Attributes
// without values are left out.
//
// DefaultVariants 将每个属性名映射到其第一个取值，没有取值的属性被忽略。
func (p Product) DefaultVariants() map[string]string {
	defaults := make(map[string]string, len(p.Attributes))
	for _, attr := range p.Attributes {
		if len(attr.Values) == 0 {
			continue
		}
		if _, seen := defaults[attr.Name]; seen {
			continue
		}
		defaults[attr.Name] = attr.Values[0]
	}
	return defaults
}

// Select sets the value for an attribute. The value must be one the product
// offers for that attribute.
//
// Select 为属性设置取值，该取值必须是商品为此属性提供的值之一。
func (s *VariantSelection) Select(name, value string) error {
	attr, ok := s.product.Attribute(name)
	if !ok {
		return fmt.Errorf("product %s has no attribute %q", s.product.ID, name)
	}
	for _, v := range attr.Values {
		if v == value {
			s.selected[name] = value
			return nil
		}
	}
	return fmt.Errorf("attribute %q of product %s does not offer %q", name, s.product.ID, value)
}

// Selected returns the chosen value for an attribute.
func (s *VariantSelection) Selected(name string) (string, bool) {
	v, ok := s.selected[name]
	return v, ok
}

// Values returns a copy of the full selection.
func (s *VariantSelection) Values() map[string]string {
	out := make(map[string]string, len(s.selected))
	for k, v := range s.selected {
		out[k] = v
	}
	return out
}
