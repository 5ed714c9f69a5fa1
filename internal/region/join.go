package region

// Join attaches statistics to every geometry feature. A feature with no
// matching record keeps a nil price and count. Names fall back from the stats
// name fields to the geometry name fields.
func Join(p Profile, year int, geo *GeometrySet, idx StatsIndex) *Collection {
	c := &Collection{Granularity: p.Granularity, Year: year}
	if geo == nil {
		return c
	}
	c.Regions = make([]*Region, 0, len(geo.Features))
	for _, f := range geo.Features {
		r := &Region{
			Code:       CodeString(f.Properties[p.GeometryCodeProp], p.CodeWidth),
			Geometry:   f.Geometry,
			Properties: f.Properties,
		}
		st, ok := idx.Get(r.Code)
		if ok {
			r.AvgPriceM2 = st.AvgPriceM2
			r.TransactionCount = st.TransactionCount
			r.Name = st.Name
		}
		if r.Name == "" {
			for _, field := range p.GeometryNameFields {
				if name := Text(f.Properties[field]); name != "" {
					r.Name = name
					break
				}
			}
		}
		c.Regions = append(c.Regions, r)
	}
	return c
}
