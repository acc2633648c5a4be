// Package xmlbuf retains XML fragments the address codec does not interpret.
//
// A Store is written once and read many times. Each fragment ("section") is
// written through an *xml.Encoder between OpenSection and CloseSection, into
// one growable buffer bounded by Quotas.MaxBufferSize. Seal freezes the store
// and returns Sections, from which any number of independent readers can be
// created, concurrently, each positioned just inside the synthetic wrapper
// element that delimits the section.
//
//	store := xmlbuf.NewStore(xmlbuf.DefaultQuotas())
//	enc, _ := store.OpenSection()
//	_ = store.CopyElement(dec, start) // or write tokens to enc
//	idx, _ := store.CloseSection()
//	sections, _ := store.Seal()
//	r, _ := sections.Reader(idx)
//
// The wrapper element is internal and never appears in codec output.
package xmlbuf
