package jt808

// FieldErrors 汇总帧内所有字段级错误，key 为字段名或附加信息ID
func (f *Frame) FieldErrors() map[string]string {
	if f == nil || f.Location == nil {
		return nil
	}
	out := map[string]string{}
	if f.Location.TimeError != "" {
		out["time"] = f.Location.TimeError
	}
	for _, e := range f.Location.Extras.Items {
		if msg := e.FieldError(); msg != "" {
			out[e.TagHex()] = msg
		}
	}
	return out
}
